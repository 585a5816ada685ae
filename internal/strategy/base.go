package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Deps agrupa los colaboradores de una estrategia. History y Notifier son
// opcionales; Intn y Now tienen default y se inyectan en tests.
type Deps struct {
	Exchange ports.Exchange
	State    ports.StateStore
	Ratios   ports.RatioProvider
	History  ports.HistoryStorage
	Notifier ports.Notifier
	Settings config.Settings

	Intn func(n int) int
	Now  func() time.Time
}

// Base es la capa común a todas las estrategias: saltos a través del bridge,
// compra inicial, bridge scout de referencia y bootstrap de la moneda actual.
type Base struct {
	exchange ports.Exchange
	state    ports.StateStore
	ratios   ports.RatioProvider
	history  ports.HistoryStorage
	notifier ports.Notifier
	settings config.Settings
	intn     func(n int) int
	now      func() time.Time
}

// NewBase crea la Base con las dependencias dadas.
func NewBase(d Deps) *Base {
	if d.Intn == nil {
		d.Intn = rand.IntN
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Base{
		exchange: d.Exchange,
		state:    d.State,
		ratios:   d.Ratios,
		history:  d.History,
		notifier: d.Notifier,
		settings: d.Settings,
		intn:     d.Intn,
		now:      d.Now,
	}
}

var _ ports.BridgeTrader = (*Base)(nil)

// TransactionThroughBridge vende originQty de pair.From por el bridge y compra
// pair.To con lo obtenido. Si la posición de origen no llega al min notional
// se salta la venta y se compra con todo el bridge libre.
//
// Devuelve (nil, nil) cuando el exchange rechaza una pata: no hubo salto.
// Con un resultado no nil el salto ocurrió aunque falle la persistencia
// posterior, que se devuelve como error.
func (b *Base) TransactionThroughBridge(ctx context.Context, pair domain.PairKey, originQty float64) (*domain.TradeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bridge := b.settings.Bridge

	trade := domain.Trade{
		ID:          uuid.NewString(),
		Origin:      pair.From,
		Destination: pair.To,
		Bridge:      bridge,
		Status:      domain.TradeStatusStarting,
		At:          b.now(),
	}

	fromPrice, err := b.exchange.GetTickerPrice(ctx, pair.From.Symbol(bridge))
	if err != nil {
		slog.Warn("strategy: origin price unavailable", "pair", pair, "err", err)
		return nil, nil
	}
	minNotional, err := b.exchange.GetMinNotional(ctx, pair.From, bridge)
	if err != nil {
		slog.Warn("strategy: min notional unavailable", "pair", pair, "err", err)
		return nil, nil
	}

	var budget float64
	if originQty > 0 && originQty*fromPrice > minNotional {
		sell, err := b.exchange.Sell(ctx, pair.From, bridge, originQty)
		if err != nil || sell == nil {
			slog.Info("strategy: couldn't sell, going back to scouting mode", "pair", pair, "qty", originQty, "err", err)
			return nil, nil
		}
		trade.OriginQty = sell.Quantity
		budget = sell.QuoteQty
		// QuoteQty es bruto; la comisión puede haberse cobrado en bridge.
		free, err := b.exchange.GetBalance(ctx, bridge)
		if err != nil {
			slog.Warn("strategy: bridge balance unavailable after sell", "err", err)
		} else if free < budget {
			slog.Debug("strategy: capping buy budget to free bridge", "quote_qty", budget, "free", free)
			budget = free
		}
	} else {
		slog.Info("strategy: skipping sell, origin below min notional",
			"coin", pair.From,
			"value", originQty*fromPrice,
			"min_notional", minNotional,
		)
		budget, err = b.exchange.GetBalance(ctx, bridge)
		if err != nil {
			slog.Warn("strategy: bridge balance unavailable", "err", err)
			return nil, nil
		}
	}

	buy, err := b.exchange.Buy(ctx, pair.To, bridge, budget)
	if err != nil || buy == nil {
		slog.Info("strategy: couldn't buy, going back to scouting mode", "pair", pair, "budget", budget, "err", err)
		trade.Status = domain.TradeStatusFailed
		b.saveTrade(ctx, trade)
		return nil, nil
	}

	trade.BridgeQty = buy.QuoteQty
	trade.DestQty = buy.Quantity
	trade.Price = buy.Price
	trade.Status = domain.TradeStatusComplete
	b.saveTrade(ctx, trade)

	slog.Info("strategy: jump complete",
		"from", pair.From,
		"to", pair.To,
		"sold", trade.OriginQty,
		"bought", trade.DestQty,
		"price", trade.Price,
	)

	return buy, b.afterBuy(ctx, pair.To, buy.Price)
}

// BuyAlt gasta todo el bridge libre en coin.
func (b *Base) BuyAlt(ctx context.Context, coin domain.Coin) (*domain.TradeResult, error) {
	bridge := b.settings.Bridge
	budget, err := b.exchange.GetBalance(ctx, bridge)
	if err != nil {
		return nil, fmt.Errorf("strategy.BuyAlt: bridge balance: %w", err)
	}

	buy, err := b.exchange.Buy(ctx, coin, bridge, budget)
	if err != nil {
		return nil, fmt.Errorf("strategy.BuyAlt: buy %s: %w", coin, err)
	}

	b.saveTrade(ctx, domain.Trade{
		ID:          uuid.NewString(),
		Origin:      bridge,
		Destination: coin,
		Bridge:      bridge,
		BridgeQty:   buy.QuoteQty,
		DestQty:     buy.Quantity,
		Price:       buy.Price,
		Status:      domain.TradeStatusComplete,
		At:          b.now(),
	})

	if err := b.ratios.UpdateThresholds(ctx, coin, buy.Price); err != nil {
		return buy, fmt.Errorf("strategy.BuyAlt: update thresholds: %w", err)
	}
	return buy, nil
}

// BridgeScout no hace nada si la moneda actual tiene balance por encima del
// min notional: el ciclo normal de Scout ya se encarga. Si no, busca en qué
// moneda invertir el bridge ocioso y la fija como actual.
func (b *Base) BridgeScout(ctx context.Context) error {
	current, err := b.state.GetCurrentCoin(ctx)
	if err != nil {
		return fmt.Errorf("strategy.BridgeScout: current coin: %w", err)
	}

	balance, err := b.exchange.GetBalance(ctx, current)
	if err != nil {
		slog.Warn("strategy: bridge scout skipped", "coin", current, "err", err)
		return nil
	}
	minNotional, err := b.exchange.GetMinNotional(ctx, current, b.settings.Bridge)
	if err != nil {
		slog.Warn("strategy: bridge scout skipped", "coin", current, "err", err)
		return nil
	}
	if balance > minNotional {
		return nil
	}

	coin, err := b.scoutBridge(ctx)
	if err != nil {
		return fmt.Errorf("strategy.BridgeScout: %w", err)
	}
	if coin == "" {
		return nil
	}
	if err := b.state.SetCurrentCoin(ctx, coin); err != nil {
		return fmt.Errorf("strategy.BridgeScout: set current coin: %w", err)
	}
	return nil
}

// scoutBridge busca la moneda sin ningún ratio positivo (la que ninguna otra
// supera) y la compra con el bridge si el balance lo permite. Devuelve ""
// si no compró nada.
func (b *Base) scoutBridge(ctx context.Context) (domain.Coin, error) {
	bridge := b.settings.Bridge
	bridgeBalance, err := b.exchange.GetBalance(ctx, bridge)
	if err != nil {
		slog.Warn("strategy: bridge balance unavailable", "err", err)
		return "", nil
	}

	for _, coin := range b.settings.SupportedCoins {
		price, err := b.exchange.GetTickerPrice(ctx, coin.Symbol(bridge))
		if err != nil {
			continue
		}

		ratios, err := b.ratios.Ratios(ctx, coin, price)
		if err != nil {
			slog.Warn("strategy: ratios unavailable", "coin", coin, "err", err)
			continue
		}
		if len(ratios.Positive()) > 0 {
			continue
		}

		minNotional, err := b.exchange.GetMinNotional(ctx, coin, bridge)
		if err != nil {
			continue
		}
		if bridgeBalance <= minNotional {
			continue
		}

		slog.Info("strategy: purchasing coin with bridge", "coin", coin, "bridge_balance", bridgeBalance)
		if _, err := b.BuyAlt(ctx, coin); err != nil {
			if domain.IsBenign(err) {
				slog.Info("strategy: bridge purchase rejected", "coin", coin, "err", err)
				return "", nil
			}
			return "", err
		}
		return coin, nil
	}
	return "", nil
}

// InitializeCurrentCoin fija la moneda inicial la primera vez que arranca el
// bot. Usa la configurada o una aleatoria de la lista soportada; en el
// segundo caso la compra con todo el bridge para tener algo que rotar.
func (b *Base) InitializeCurrentCoin(ctx context.Context) error {
	_, err := b.state.GetCurrentCoin(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNoCurrentCoin) {
		return fmt.Errorf("strategy.InitializeCurrentCoin: %w", err)
	}

	supported := b.settings.SupportedCoins
	coin := b.settings.CurrentCoin
	configured := coin != ""
	if !configured {
		if len(supported) == 0 {
			return &domain.ConfigError{Field: "trader.supported_coins", Err: errors.New("no coins to pick from")}
		}
		coin = supported[b.intn(len(supported))]
	}

	slog.Info("strategy: setting initial coin", "coin", coin, "configured", configured)

	if !supported.Contains(coin) {
		return &domain.ConfigError{
			Field: "trader.current_coin",
			Err:   fmt.Errorf("%w: %s, a coin from the supported list must be provided at init", domain.ErrUnsupportedCoin, coin),
		}
	}
	if err := b.state.SetCurrentCoin(ctx, coin); err != nil {
		return fmt.Errorf("strategy.InitializeCurrentCoin: %w", err)
	}

	if configured {
		return nil
	}

	slog.Info("strategy: purchasing initial coin", "coin", coin)
	if _, err := b.BuyAlt(ctx, coin); err != nil {
		if !domain.IsBenign(err) {
			return fmt.Errorf("strategy.InitializeCurrentCoin: %w", err)
		}
		slog.Warn("strategy: initial purchase rejected", "coin", coin, "err", err)
		return nil
	}
	slog.Info("strategy: ready to start trading")
	return nil
}

// progress emite la línea efímera de actividad.
func (b *Base) progress(coin domain.Coin) {
	if b.notifier != nil {
		b.notifier.Progress(coin, b.settings.Bridge)
	}
}

// afterBuy mueve el puntero a la moneda comprada y reajusta sus umbrales.
func (b *Base) afterBuy(ctx context.Context, coin domain.Coin, price float64) error {
	var errs []error
	if err := b.state.SetCurrentCoin(ctx, coin); err != nil {
		errs = append(errs, fmt.Errorf("set current coin: %w", err))
	}
	if err := b.ratios.UpdateThresholds(ctx, coin, price); err != nil {
		errs = append(errs, fmt.Errorf("update thresholds: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("strategy.TransactionThroughBridge: %w", errors.Join(errs...))
	}
	return nil
}

func (b *Base) saveTrade(ctx context.Context, t domain.Trade) {
	if b.history == nil {
		return
	}
	if err := b.history.SaveTrade(ctx, t); err != nil {
		slog.Warn("strategy: storage error", "trade", t.ID, "err", err)
	}
}
