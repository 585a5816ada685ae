package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

const defaultName = "default"

// Default mantiene una sola moneda actual y salta con todo su balance a la
// moneda con mejor ratio positivo.
type Default struct {
	*Base
}

// NewDefault crea la estrategia de una sola moneda.
func NewDefault(base *Base) *Default {
	return &Default{Base: base}
}

// Name implementa Strategy.
func (d *Default) Name() string {
	return defaultName
}

// Initialize fija la moneda inicial si aún no hay ninguna.
func (d *Default) Initialize(ctx context.Context) error {
	return d.InitializeCurrentCoin(ctx)
}

// Scout evalúa la moneda actual contra todas las demás.
func (d *Default) Scout(ctx context.Context) error {
	coin, err := d.state.GetCurrentCoin(ctx)
	if err != nil {
		return fmt.Errorf("default.Scout: current coin: %w", err)
	}

	d.progress(coin)

	symbol := coin.Symbol(d.settings.Bridge)
	price, err := d.exchange.GetTickerPrice(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrPriceNotFound) {
			slog.Info("default: skipping scouting, current coin not found", "symbol", symbol)
		} else {
			slog.Warn("default: skipping scouting, price unavailable", "symbol", symbol, "err", err)
		}
		return nil
	}

	ratios, err := d.ratios.Ratios(ctx, coin, price)
	if err != nil {
		slog.Warn("default: ratios unavailable", "coin", coin, "err", err)
		return nil
	}
	best, ok := ratios.Positive().Best()
	if !ok {
		return nil
	}

	balance, err := d.exchange.GetBalance(ctx, coin)
	if err != nil {
		slog.Warn("default: balance unavailable", "coin", coin, "err", err)
		return nil
	}

	slog.Info("default: jumping", "from", coin, "to", best.Pair.To, "ratio", best.Ratio)
	if _, err := d.TransactionThroughBridge(ctx, best.Pair, balance); err != nil {
		slog.Error("default: transaction error", "pair", best.Pair, "err", err)
	}
	return nil
}
