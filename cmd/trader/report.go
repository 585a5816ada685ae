package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/adapters/notify"
	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/domain"
)

const reportWindow = 24 * time.Hour

// runReport imprime trades, histórico de saltos y el último snapshot de cada
// moneda de la ventana dada.
func runReport(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, notifier *notify.Console, window time.Duration, queue []domain.Coin) error {
	settings := cfg.Settings()
	since := time.Now().Add(-window)

	current, err := store.GetCurrentCoin(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoCurrentCoin) {
		return fmt.Errorf("report: current coin: %w", err)
	}

	history, err := store.GetCurrentCoinHistory(ctx, since)
	if err != nil {
		return fmt.Errorf("report: coin history: %w", err)
	}

	trades, err := store.GetTrades(ctx, since)
	if err != nil {
		return fmt.Errorf("report: trades: %w", err)
	}

	var holdings []domain.CoinValue
	coins := append(domain.CoinList{settings.Bridge}, settings.SupportedCoins...)
	for _, coin := range coins {
		values, err := store.GetCoinValues(ctx, coin, since)
		if err != nil {
			return fmt.Errorf("report: coin values %s: %w", coin, err)
		}
		if len(values) > 0 {
			holdings = append(holdings, values[len(values)-1])
		}
	}
	holdings = latestSnapshot(holdings)

	notifier.PrintReport(notify.ReportInput{
		Bridge:      settings.Bridge,
		Strategy:    settings.Strategy,
		Paper:       cfg.Paper.Enabled,
		CurrentCoin: current,
		Queue:       queue,
		History:     history,
		Trades:      trades,
		Holdings:    holdings,
	})
	return nil
}

// latestSnapshot se queda con las filas del snapshot más reciente; una moneda
// vendida conserva filas viejas que ya no son posición.
func latestSnapshot(values []domain.CoinValue) []domain.CoinValue {
	var latest time.Time
	for _, v := range values {
		if v.At.After(latest) {
			latest = v.At
		}
	}
	out := values[:0]
	for _, v := range values {
		if v.At.Equal(latest) {
			out = append(out, v)
		}
	}
	return out
}
