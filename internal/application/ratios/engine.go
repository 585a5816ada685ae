package ratios

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Market es el subconjunto del exchange que necesita el motor.
type Market interface {
	ports.PriceSource
	GetFee(ctx context.Context, origin, bridge domain.Coin) (float64, error)
}

// Config contiene los parámetros del cálculo de ratios.
type Config struct {
	Bridge     domain.Coin
	Coins      domain.CoinList
	Multiplier float64 // cuántas veces el fee debe superarse para saltar
	Margin     float64 // porcentaje, solo con UseMargin
	UseMargin  bool
}

// Engine implementa ports.RatioProvider sobre los umbrales persistidos por par.
type Engine struct {
	cfg     Config
	market  Market
	pairs   ports.PairStorage
	history ports.HistoryStorage
	now     func() time.Time
}

var _ ports.RatioProvider = (*Engine)(nil)

// New crea un Engine. history puede ser nil (no se guarda scout history).
func New(cfg Config, market Market, pairs ports.PairStorage, history ports.HistoryStorage) *Engine {
	return &Engine{
		cfg:     cfg,
		market:  market,
		pairs:   pairs,
		history: history,
		now:     time.Now,
	}
}

// InitializeThresholds crea los pares que falten y fija el umbral inicial de
// los que aún no tienen, con el ratio de precios actual from/to.
func (e *Engine) InitializeThresholds(ctx context.Context) error {
	if err := e.pairs.EnsurePairs(ctx, e.cfg.Coins); err != nil {
		return fmt.Errorf("ratios.InitializeThresholds: ensure pairs: %w", err)
	}

	initialized := 0
	for _, from := range e.cfg.Coins {
		pairs, err := e.pairs.GetPairs(ctx, from)
		if err != nil {
			return fmt.Errorf("ratios.InitializeThresholds: pairs from %s: %w", from, err)
		}

		var fromPrice float64
		for _, p := range pairs {
			if p.Ratio != 0 {
				continue
			}
			if fromPrice == 0 {
				fromPrice, err = e.price(ctx, p.From)
				if err != nil {
					slog.Info("ratios: skipping threshold init, price not found", "coin", p.From, "err", err)
					break
				}
			}
			toPrice, err := e.price(ctx, p.To)
			if err != nil {
				slog.Info("ratios: skipping threshold init, price not found", "coin", p.To, "err", err)
				continue
			}
			if err := e.pairs.SetPairRatio(ctx, p.Key(), fromPrice/toPrice); err != nil {
				return fmt.Errorf("ratios.InitializeThresholds: %s: %w", p, err)
			}
			initialized++
		}
	}

	slog.Info("ratios: thresholds initialized", "pairs", initialized)
	return nil
}

// Ratios implementa ports.RatioProvider. Para cada par coin -> X con umbral y
// precio conocidos calcula cuánto mejora el ratio actual al persistido,
// descontando fees. Guarda una fila de scout history por par evaluado.
func (e *Engine) Ratios(ctx context.Context, coin domain.Coin, coinPrice float64) (domain.RatioMap, error) {
	pairs, err := e.pairs.GetPairs(ctx, coin)
	if err != nil {
		return nil, fmt.Errorf("ratios.Ratios: pairs from %s: %w", coin, err)
	}

	fromFee, err := e.market.GetFee(ctx, coin, e.cfg.Bridge)
	if err != nil {
		return nil, fmt.Errorf("ratios.Ratios: fee %s: %w", coin, err)
	}

	now := e.now()
	out := make(domain.RatioMap, len(pairs))
	records := make([]domain.ScoutRecord, 0, len(pairs))
	for _, p := range pairs {
		if !e.cfg.Coins.Contains(p.To) {
			continue
		}
		if p.Ratio == 0 {
			slog.Debug("ratios: threshold not initialized", "pair", p)
			continue
		}

		optPrice, err := e.price(ctx, p.To)
		if err != nil {
			slog.Info("ratios: skipping pair, optional coin not found", "symbol", p.To.Symbol(e.cfg.Bridge))
			continue
		}
		toFee, err := e.market.GetFee(ctx, p.To, e.cfg.Bridge)
		if err != nil {
			slog.Warn("ratios: skipping pair, fee unavailable", "coin", p.To, "err", err)
			continue
		}

		records = append(records, domain.ScoutRecord{
			Pair:             p.Key(),
			TargetRatio:      p.Ratio,
			CurrentCoinPrice: coinPrice,
			OtherCoinPrice:   optPrice,
			At:               now,
		})

		out[p.Key()] = e.ratio(coinPrice/optPrice, fromFee+toFee, p.Ratio)
	}

	if e.history != nil && len(records) > 0 {
		if err := e.history.SaveScoutRecords(ctx, records); err != nil {
			slog.Warn("ratios: storage error", "err", err)
		}
	}
	return out, nil
}

// ratio compara el ratio de precios actual con el umbral. Sin margen el fee
// se exige multiplier veces; con margen se exige un porcentaje sobre el umbral.
func (e *Engine) ratio(current, fee, threshold float64) float64 {
	if e.cfg.UseMargin {
		return (1-fee)*current/threshold - 1 - e.cfg.Margin/100
	}
	return (current - fee*e.cfg.Multiplier*current) - threshold
}

// UpdateThresholds implementa ports.RatioProvider: tras comprar coin a
// coinPrice cada par X -> coin pasa a exigir el ratio de precios actual.
func (e *Engine) UpdateThresholds(ctx context.Context, coin domain.Coin, coinPrice float64) error {
	if coinPrice <= 0 {
		return fmt.Errorf("ratios.UpdateThresholds: %s: invalid price %v", coin, coinPrice)
	}

	pairs, err := e.pairs.GetPairsTo(ctx, coin)
	if err != nil {
		return fmt.Errorf("ratios.UpdateThresholds: pairs to %s: %w", coin, err)
	}

	var errs []error
	for _, p := range pairs {
		fromPrice, err := e.price(ctx, p.From)
		if err != nil {
			slog.Info("ratios: skipping threshold update, price not found", "coin", p.From)
			continue
		}
		if err := e.pairs.SetPairRatio(ctx, p.Key(), fromPrice/coinPrice); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ratios.UpdateThresholds: %w", errors.Join(errs...))
	}
	return nil
}

func (e *Engine) price(ctx context.Context, coin domain.Coin) (float64, error) {
	p, err := e.market.GetTickerPrice(ctx, coin.Symbol(e.cfg.Bridge))
	if err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, fmt.Errorf("%s: %w", coin.Symbol(e.cfg.Bridge), domain.ErrPriceNotFound)
	}
	return p, nil
}
