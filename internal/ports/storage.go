package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// PairStorage persiste los umbrales de salto por par ordenado.
type PairStorage interface {
	// EnsurePairs crea una fila (ratio 0) para cada par ordenado de coins.
	EnsurePairs(ctx context.Context, coins []domain.Coin) error
	GetPairs(ctx context.Context, from domain.Coin) ([]domain.Pair, error)
	GetPairsTo(ctx context.Context, to domain.Coin) ([]domain.Pair, error)
	SetPairRatio(ctx context.Context, key domain.PairKey, ratio float64) error
}

// HistoryStorage persiste trades, decisiones de scout y snapshots de valor.
type HistoryStorage interface {
	SaveTrade(ctx context.Context, t domain.Trade) error
	GetTrades(ctx context.Context, since time.Time) ([]domain.Trade, error)

	SaveScoutRecords(ctx context.Context, records []domain.ScoutRecord) error
	PruneScoutHistory(ctx context.Context, before time.Time) (int64, error)

	SaveCoinValues(ctx context.Context, values []domain.CoinValue) error
	GetCoinValues(ctx context.Context, coin domain.Coin, since time.Time) ([]domain.CoinValue, error)
}
