package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
	"github.com/alejandrodnm/rotabot/internal/strategy"
)

const (
	defaultValueInterval = time.Minute
	defaultPruneInterval = time.Hour
	defaultRetention     = time.Hour
)

// Config contiene la configuración del runner.
type Config struct {
	Interval      time.Duration // periodo entre ciclos de scout
	ValueInterval time.Duration // cada cuánto se guardan snapshots de valor
	PruneInterval time.Duration // cada cuánto se poda el scout history
	Retention     time.Duration // antigüedad máxima del scout history
	Bridge        domain.Coin
	Coins         domain.CoinList
}

// Runner es el scheduler del trader: un único loop que llama a la estrategia
// y a las tareas periódicas de housekeeping. Nunca solapa dos ciclos.
type Runner struct {
	cfg      Config
	strategy strategy.Strategy
	exchange ports.Exchange
	history  ports.HistoryStorage
	now      func() time.Time

	lastValues time.Time
	lastPrune  time.Time
	cycles     int
}

// New crea un Runner con todas las dependencias inyectadas.
func New(cfg Config, s strategy.Strategy, exchange ports.Exchange, history ports.HistoryStorage) *Runner {
	if cfg.ValueInterval <= 0 {
		cfg.ValueInterval = defaultValueInterval
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = defaultPruneInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	return &Runner{
		cfg:      cfg,
		strategy: s,
		exchange: exchange,
		history:  history,
		now:      time.Now,
	}
}

// Run inicializa la estrategia y ejecuta ciclos hasta que el contexto se
// cancele. Solo un error de inicialización se devuelve.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("runner starting",
		"strategy", r.strategy.Name(),
		"interval", r.cfg.Interval,
		"coins", len(r.cfg.Coins),
		"bridge", r.cfg.Bridge,
	)

	if err := r.strategy.Initialize(ctx); err != nil {
		return fmt.Errorf("engine.Run: initialize %s: %w", r.strategy.Name(), err)
	}

	r.cycle(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("runner stopped", "cycles", r.cycles)
			return nil
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

// RunOnce inicializa la estrategia y ejecuta exactamente un ciclo.
func (r *Runner) RunOnce(ctx context.Context) error {
	if err := r.strategy.Initialize(ctx); err != nil {
		return fmt.Errorf("engine.RunOnce: initialize %s: %w", r.strategy.Name(), err)
	}
	r.cycle(ctx)
	return nil
}

// Cycles devuelve cuántos ciclos se han ejecutado.
func (r *Runner) Cycles() int {
	return r.cycles
}

// cycle ejecuta scout y bridge scout, y después las tareas periódicas.
// Los errores se loguean: un ciclo fallido no detiene el trader.
func (r *Runner) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := r.now()
	r.cycles++

	if err := r.strategy.Scout(ctx); err != nil {
		slog.Error("runner: scout failed", "strategy", r.strategy.Name(), "err", err)
	}
	if err := r.strategy.BridgeScout(ctx); err != nil {
		slog.Error("runner: bridge scout failed", "strategy", r.strategy.Name(), "err", err)
	}

	now := r.now()
	if r.lastValues.IsZero() || now.Sub(r.lastValues) >= r.cfg.ValueInterval {
		if err := r.recordValues(ctx, now); err != nil {
			slog.Warn("runner: coin values not recorded", "err", err)
		}
		r.lastValues = now
	}
	if r.lastPrune.IsZero() || now.Sub(r.lastPrune) >= r.cfg.PruneInterval {
		r.prune(ctx, now)
		r.lastPrune = now
	}

	slog.Debug("runner: cycle complete", "cycle", r.cycles, "duration", r.now().Sub(start).Round(time.Millisecond))
}

// recordValues guarda el valor en bridge de cada moneda con balance.
func (r *Runner) recordValues(ctx context.Context, now time.Time) error {
	if r.history == nil {
		return nil
	}

	var values []domain.CoinValue
	coins := append(domain.CoinList{r.cfg.Bridge}, r.cfg.Coins...)
	for _, coin := range coins {
		balance, err := r.exchange.GetBalance(ctx, coin)
		if err != nil {
			return fmt.Errorf("balance %s: %w", coin, err)
		}
		if balance <= 0 {
			continue
		}

		price := 1.0
		if coin != r.cfg.Bridge {
			price, err = r.exchange.GetTickerPrice(ctx, coin.Symbol(r.cfg.Bridge))
			if err != nil {
				slog.Debug("runner: no price for holding", "coin", coin, "err", err)
				continue
			}
		}

		values = append(values, domain.CoinValue{
			Coin:        coin,
			Balance:     balance,
			Price:       price,
			BridgeValue: balance * price,
			At:          now,
		})
	}

	if len(values) == 0 {
		return nil
	}
	return r.history.SaveCoinValues(ctx, values)
}

func (r *Runner) prune(ctx context.Context, now time.Time) {
	if r.history == nil {
		return
	}
	n, err := r.history.PruneScoutHistory(ctx, now.Add(-r.cfg.Retention))
	if err != nil {
		slog.Warn("runner: scout history prune failed", "err", err)
		return
	}
	if n > 0 {
		slog.Info("runner: scout history pruned", "rows", n)
	}
}
