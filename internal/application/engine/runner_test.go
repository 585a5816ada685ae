package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

type fakeStrategy struct {
	mu        sync.Mutex
	initErr   error
	scoutErr  error
	calls     []string
	onScout   func()
	initCalls int
}

func (s *fakeStrategy) Name() string { return "fake" }

func (s *fakeStrategy) Initialize(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	return s.initErr
}

func (s *fakeStrategy) Scout(context.Context) error {
	s.mu.Lock()
	s.calls = append(s.calls, "scout")
	hook := s.onScout
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.scoutErr
}

func (s *fakeStrategy) BridgeScout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "bridge")
	return nil
}

func (s *fakeStrategy) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeMarket struct {
	balances map[domain.Coin]float64
	prices   map[string]float64
}

func (m *fakeMarket) GetTickerPrice(_ context.Context, symbol string) (float64, error) {
	p, ok := m.prices[symbol]
	if !ok {
		return 0, domain.ErrPriceNotFound
	}
	return p, nil
}

func (m *fakeMarket) GetBalance(_ context.Context, asset domain.Coin) (float64, error) {
	return m.balances[asset], nil
}

func (m *fakeMarket) GetMinNotional(context.Context, domain.Coin, domain.Coin) (float64, error) {
	return 10, nil
}

func (m *fakeMarket) GetFee(context.Context, domain.Coin, domain.Coin) (float64, error) {
	return 0.001, nil
}

func (m *fakeMarket) Sell(context.Context, domain.Coin, domain.Coin, float64) (*domain.TradeResult, error) {
	return nil, errors.New("not supported")
}

func (m *fakeMarket) Buy(context.Context, domain.Coin, domain.Coin, float64) (*domain.TradeResult, error) {
	return nil, errors.New("not supported")
}

type fakeHistory struct {
	values      []domain.CoinValue
	pruneBefore []time.Time
}

func (h *fakeHistory) SaveTrade(context.Context, domain.Trade) error { return nil }

func (h *fakeHistory) GetTrades(context.Context, time.Time) ([]domain.Trade, error) { return nil, nil }

func (h *fakeHistory) SaveScoutRecords(context.Context, []domain.ScoutRecord) error { return nil }

func (h *fakeHistory) PruneScoutHistory(_ context.Context, before time.Time) (int64, error) {
	h.pruneBefore = append(h.pruneBefore, before)
	return 3, nil
}

func (h *fakeHistory) SaveCoinValues(_ context.Context, values []domain.CoinValue) error {
	h.values = append(h.values, values...)
	return nil
}

func (h *fakeHistory) GetCoinValues(context.Context, domain.Coin, time.Time) ([]domain.CoinValue, error) {
	return nil, nil
}

func newTestRunner(s *fakeStrategy, h *fakeHistory) *Runner {
	market := &fakeMarket{
		balances: map[domain.Coin]float64{"USDT": 12.5, "BTC": 0.01, "XRP": 100},
		prices:   map[string]float64{"BTCUSDT": 50000},
	}
	return New(Config{
		Interval:  10 * time.Millisecond,
		Retention: 2 * time.Hour,
		Bridge:    "USDT",
		Coins:     domain.CoinList{"BTC", "ETH", "XRP"},
	}, s, market, h)
}

func TestRunner_RunOnce(t *testing.T) {
	s := &fakeStrategy{}
	h := &fakeHistory{}
	r := newTestRunner(s, h)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, 1, s.initCalls)
	assert.Equal(t, []string{"scout", "bridge"}, s.snapshot())

	// XRP sin precio y ETH sin balance no se registran
	require.Len(t, h.values, 2)
	assert.Equal(t, domain.Coin("USDT"), h.values[0].Coin)
	assert.InDelta(t, 12.5, h.values[0].BridgeValue, 1e-9)
	assert.Equal(t, domain.Coin("BTC"), h.values[1].Coin)
	assert.InDelta(t, 500.0, h.values[1].BridgeValue, 1e-9)

	require.Len(t, h.pruneBefore, 1)
	assert.Equal(t, now.Add(-2*time.Hour), h.pruneBefore[0])
}

func TestRunner_InitializeErrorIsFatal(t *testing.T) {
	s := &fakeStrategy{initErr: &domain.ConfigError{Field: "trader.split_fraction", Err: domain.ErrInvalidSplitFraction}}
	r := newTestRunner(s, &fakeHistory{})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSplitFraction)
	assert.Empty(t, s.snapshot())
}

func TestRunner_CycleErrorsAreNotFatal(t *testing.T) {
	s := &fakeStrategy{scoutErr: errors.New("boom")}
	r := newTestRunner(s, &fakeHistory{})

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, []string{"scout", "bridge"}, s.snapshot())
}

func TestRunner_PeriodicTasksRespectIntervals(t *testing.T) {
	s := &fakeStrategy{}
	h := &fakeHistory{}
	r := newTestRunner(s, h)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	r.cycle(ctx)
	now = now.Add(30 * time.Second)
	r.cycle(ctx)
	assert.Len(t, h.values, 2)
	assert.Len(t, h.pruneBefore, 1)

	now = now.Add(31 * time.Second)
	r.cycle(ctx)
	assert.Len(t, h.values, 4)
	assert.Len(t, h.pruneBefore, 1)

	now = now.Add(time.Hour)
	r.cycle(ctx)
	assert.Len(t, h.pruneBefore, 2)
	assert.Equal(t, 4, r.Cycles())
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeStrategy{}
	var once sync.Once
	scouts := 0
	s.onScout = func() {
		scouts++
		if scouts >= 3 {
			once.Do(cancel)
		}
	}
	r := newTestRunner(s, &fakeHistory{})

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.GreaterOrEqual(t, scouts, 3)
}
