package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/adapters/binance"
	"github.com/alejandrodnm/rotabot/internal/adapters/notify"
	"github.com/alejandrodnm/rotabot/internal/adapters/paper"
	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/application/engine"
	"github.com/alejandrodnm/rotabot/internal/application/ratios"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
	"github.com/alejandrodnm/rotabot/internal/strategy"
)

// run cablea exchange, motor de ratios, estrategia y runner, y bloquea hasta
// que el contexto se cancela (o tras un ciclo con once).
func run(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, notifier *notify.Console, once bool) error {
	settings := cfg.Settings()

	market := binance.NewExchange(binance.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.APISecret))
	var exchange ports.Exchange = market
	if cfg.Paper.Enabled {
		slog.Info("=== PAPER TRADING MODE ===",
			"initial_bridge", cfg.Paper.InitialBridge,
			"fee", cfg.Paper.FeeRate,
			"min_notional", cfg.Paper.MinNotional,
		)
		exchange = paper.New(market, paper.Config{
			Bridge:        settings.Bridge,
			InitialBridge: cfg.Paper.InitialBridge,
			FeeRate:       cfg.Paper.FeeRate,
			MinNotional:   cfg.Paper.MinNotional,
		})
	} else if !market.HasCredentials() {
		return fmt.Errorf("run: live trading needs api.api_key and api.api_secret (or use -paper)")
	}

	ratioEngine := ratios.New(ratios.Config{
		Bridge:     settings.Bridge,
		Coins:      settings.SupportedCoins,
		Multiplier: settings.ScoutMultiplier,
		Margin:     settings.ScoutMargin,
		UseMargin:  settings.UseMargin,
	}, exchange, store, store)

	if err := ratioEngine.InitializeThresholds(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	strat, err := strategy.New(settings.Strategy, strategy.Deps{
		Exchange: exchange,
		State:    store,
		Ratios:   ratioEngine,
		History:  store,
		Notifier: notifier,
		Settings: settings,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	runner := engine.New(engine.Config{
		Interval:  cfg.ScoutInterval(),
		Retention: cfg.ScoutHistoryRetention(),
		Bridge:    settings.Bridge,
		Coins:     settings.SupportedCoins,
	}, strat, exchange, store)

	if once {
		if err := runner.RunOnce(ctx); err != nil {
			return err
		}
		return runReport(ctx, cfg, store, notifier, reportWindow, queueOf(strat))
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.API.Stream {
		g.Go(func() error {
			return market.StreamPrices(gctx, cfg.API.StreamURL)
		})
	}
	g.Go(func() error {
		return runner.Run(gctx)
	})

	err = g.Wait()
	if err != nil {
		return err
	}

	// Al salir el contexto ya está cancelado: el reporte usa uno propio.
	return runReport(context.WithoutCancel(ctx), cfg, store, notifier, reportWindow, queueOf(strat))
}

// queueOf devuelve el working set si la estrategia lo tiene.
func queueOf(s strategy.Strategy) []domain.Coin {
	if q, ok := s.(strategy.QueueReporter); ok {
		return q.Queue()
	}
	return nil
}
