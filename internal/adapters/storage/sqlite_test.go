package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/domain"
)

func newMemStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStorage_CurrentCoin(t *testing.T) {
	db := newMemStorage(t)
	ctx := context.Background()

	_, err := db.GetCurrentCoin(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCurrentCoin)

	require.NoError(t, db.SetCurrentCoin(ctx, "BTC"))
	require.NoError(t, db.SetCurrentCoin(ctx, "ETH"))

	coin, err := db.GetCurrentCoin(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Coin("ETH"), coin)

	history, err := db.GetCurrentCoinHistory(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.Coin("BTC"), history[0].Coin)
	assert.Equal(t, domain.Coin("ETH"), history[1].Coin)
}

func TestSQLiteStorage_CurrentCoinSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotabot.db")
	ctx := context.Background()

	db, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, db.SetCurrentCoin(ctx, "ADA"))
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer db.Close()

	coin, err := db.GetCurrentCoin(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Coin("ADA"), coin)
}

func TestSQLiteStorage_Pairs(t *testing.T) {
	db := newMemStorage(t)
	ctx := context.Background()
	coins := []domain.Coin{"ADA", "BTC", "ETH"}

	require.NoError(t, db.EnsurePairs(ctx, coins))

	from, err := db.GetPairs(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, from, 2)
	assert.Equal(t, domain.Coin("ADA"), from[0].To)
	assert.Equal(t, domain.Coin("ETH"), from[1].To)
	assert.Zero(t, from[0].Ratio)

	require.NoError(t, db.SetPairRatio(ctx, domain.PairKey{From: "BTC", To: "ETH"}, 15.5))

	// EnsurePairs no pisa umbrales existentes
	require.NoError(t, db.EnsurePairs(ctx, coins))

	to, err := db.GetPairsTo(ctx, "ETH")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, domain.Coin("BTC"), to[1].From)
	assert.InDelta(t, 15.5, to[1].Ratio, 1e-9)

	err = db.SetPairRatio(ctx, domain.PairKey{From: "BTC", To: "XRP"}, 1)
	assert.Error(t, err)
}

func TestSQLiteStorage_Trades(t *testing.T) {
	db := newMemStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	tr := domain.Trade{
		ID:          "t-1",
		Origin:      "BTC",
		Destination: "ETH",
		Bridge:      "USDT",
		OriginQty:   0.5,
		Status:      domain.TradeStatusStarting,
		At:          now,
	}
	require.NoError(t, db.SaveTrade(ctx, tr))

	tr.BridgeQty = 100
	tr.DestQty = 0.04
	tr.Price = 2500
	tr.Status = domain.TradeStatusComplete
	require.NoError(t, db.SaveTrade(ctx, tr))

	trades, err := db.GetTrades(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeStatusComplete, trades[0].Status)
	assert.InDelta(t, 2500.0, trades[0].Price, 1e-9)
	assert.Equal(t, domain.Coin("ETH"), trades[0].Destination)
	assert.True(t, now.Equal(trades[0].At))

	trades, err = db.GetTrades(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSQLiteStorage_ScoutHistoryPrune(t *testing.T) {
	db := newMemStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.SaveScoutRecords(ctx, nil))
	require.NoError(t, db.SaveScoutRecords(ctx, []domain.ScoutRecord{
		{Pair: domain.PairKey{From: "BTC", To: "ETH"}, TargetRatio: 15, CurrentCoinPrice: 30000, OtherCoinPrice: 2000, At: now.Add(-2 * time.Hour)},
		{Pair: domain.PairKey{From: "BTC", To: "ADA"}, TargetRatio: 60000, CurrentCoinPrice: 30000, OtherCoinPrice: 0.5, At: now.Add(-2 * time.Hour)},
		{Pair: domain.PairKey{From: "BTC", To: "ETH"}, TargetRatio: 15, CurrentCoinPrice: 30100, OtherCoinPrice: 2000, At: now},
	}))

	n, err := db.PruneScoutHistory(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.PruneScoutHistory(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStorage_CoinValues(t *testing.T) {
	db := newMemStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.SaveCoinValues(ctx, []domain.CoinValue{
		{Coin: "BTC", Balance: 0.1, Price: 30000, BridgeValue: 3000, At: now.Add(-time.Minute)},
		{Coin: "ETH", Balance: 1, Price: 2000, BridgeValue: 2000, At: now},
		{Coin: "BTC", Balance: 0.1, Price: 31000, BridgeValue: 3100, At: now},
	}))

	values, err := db.GetCoinValues(ctx, "BTC", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.InDelta(t, 3000.0, values[0].BridgeValue, 1e-9)
	assert.InDelta(t, 3100.0, values[1].BridgeValue, 1e-9)
}
