package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/domain"
)

type order struct {
	side   domain.Side
	coin   domain.Coin
	amount float64
}

// fakeExchange simula fills inmediatos al precio del mapa.
//
// sellFee se descuenta del bridge acreditado pero QuoteQty se informa bruto,
// como cummulativeQuoteQty de Binance. Las monedas en balanceErr fallan al
// leer su balance; afterBuy corre con el lock tomado.
type fakeExchange struct {
	mu             sync.Mutex
	prices         map[string]float64
	balances       map[domain.Coin]float64
	balanceErr     map[domain.Coin]error
	minNotional    float64
	minNotionalErr error
	sellFee        float64
	buyErr         error
	sellErr        error
	afterBuy       func(f *fakeExchange)
	orders         []order
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		prices:     make(map[string]float64),
		balances:   make(map[domain.Coin]float64),
		balanceErr: make(map[domain.Coin]error),
	}
}

func (f *fakeExchange) GetTickerPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("fake: %s: %w", symbol, domain.ErrPriceNotFound)
	}
	return p, nil
}

func (f *fakeExchange) GetBalance(_ context.Context, asset domain.Coin) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.balanceErr[asset]; err != nil {
		return 0, err
	}
	return f.balances[asset], nil
}

func (f *fakeExchange) GetMinNotional(context.Context, domain.Coin, domain.Coin) (float64, error) {
	if f.minNotionalErr != nil {
		return 0, f.minNotionalErr
	}
	return f.minNotional, nil
}

func (f *fakeExchange) GetFee(context.Context, domain.Coin, domain.Coin) (float64, error) {
	return 0.001, nil
}

func (f *fakeExchange) Sell(_ context.Context, origin, bridge domain.Coin, qty float64) (*domain.TradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sellErr != nil {
		return nil, f.sellErr
	}
	if qty > f.balances[origin]+1e-9 {
		return nil, domain.ErrInsufficientBalance
	}
	price := f.prices[origin.Symbol(bridge)]
	quote := qty * price
	f.balances[origin] -= qty
	f.balances[bridge] += quote * (1 - f.sellFee)
	f.orders = append(f.orders, order{side: domain.SideSell, coin: origin, amount: qty})
	return &domain.TradeResult{Symbol: origin.Symbol(bridge), Side: domain.SideSell, Quantity: qty, QuoteQty: quote, Price: price}, nil
}

func (f *fakeExchange) Buy(_ context.Context, dest, bridge domain.Coin, quoteQty float64) (*domain.TradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buyErr != nil {
		return nil, f.buyErr
	}
	if quoteQty <= 0 || quoteQty < f.minNotional {
		return nil, domain.ErrBelowMinNotional
	}
	if quoteQty > f.balances[bridge]+1e-9 {
		return nil, domain.ErrInsufficientBalance
	}
	price, ok := f.prices[dest.Symbol(bridge)]
	if !ok {
		return nil, domain.ErrPriceNotFound
	}
	qty := quoteQty / price
	f.balances[bridge] -= quoteQty
	f.balances[dest] += qty
	f.orders = append(f.orders, order{side: domain.SideBuy, coin: dest, amount: quoteQty})
	if f.afterBuy != nil {
		f.afterBuy(f)
	}
	return &domain.TradeResult{Symbol: dest.Symbol(bridge), Side: domain.SideBuy, Quantity: qty, QuoteQty: quoteQty, Price: price}, nil
}

func (f *fakeExchange) ordersBy(side domain.Side) []order {
	var out []order
	for _, o := range f.orders {
		if o.side == side {
			out = append(out, o)
		}
	}
	return out
}

type fakeState struct {
	coin   domain.Coin
	writes []domain.Coin
	setErr error
}

func (s *fakeState) GetCurrentCoin(context.Context) (domain.Coin, error) {
	if s.coin == "" {
		return "", domain.ErrNoCurrentCoin
	}
	return s.coin, nil
}

func (s *fakeState) SetCurrentCoin(_ context.Context, coin domain.Coin) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.coin = coin
	s.writes = append(s.writes, coin)
	return nil
}

type thresholdUpdate struct {
	coin  domain.Coin
	price float64
}

// fakeRatios devuelve ratios fijos por moneda origen.
type fakeRatios struct {
	byCoin  map[domain.Coin]domain.RatioMap
	updates []thresholdUpdate
	calls   int
	err     error
}

func (r *fakeRatios) Ratios(_ context.Context, coin domain.Coin, _ float64) (domain.RatioMap, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.byCoin[coin], nil
}

func (r *fakeRatios) UpdateThresholds(_ context.Context, coin domain.Coin, price float64) error {
	r.updates = append(r.updates, thresholdUpdate{coin: coin, price: price})
	return nil
}

type fakeHistory struct {
	trades []domain.Trade
}

func (h *fakeHistory) SaveTrade(_ context.Context, t domain.Trade) error {
	h.trades = append(h.trades, t)
	return nil
}

func (h *fakeHistory) GetTrades(context.Context, time.Time) ([]domain.Trade, error) {
	return h.trades, nil
}

func (h *fakeHistory) SaveScoutRecords(context.Context, []domain.ScoutRecord) error { return nil }

func (h *fakeHistory) PruneScoutHistory(context.Context, time.Time) (int64, error) { return 0, nil }

func (h *fakeHistory) SaveCoinValues(context.Context, []domain.CoinValue) error { return nil }

func (h *fakeHistory) GetCoinValues(context.Context, domain.Coin, time.Time) ([]domain.CoinValue, error) {
	return nil, nil
}

type fakeNotifier struct {
	shown []domain.Coin
}

func (n *fakeNotifier) Progress(coin, _ domain.Coin) {
	n.shown = append(n.shown, coin)
}

type harness struct {
	ex       *fakeExchange
	state    *fakeState
	ratios   *fakeRatios
	history  *fakeHistory
	notifier *fakeNotifier
	settings config.Settings
}

func newHarness() *harness {
	return &harness{
		ex:       newFakeExchange(),
		state:    &fakeState{},
		ratios:   &fakeRatios{byCoin: make(map[domain.Coin]domain.RatioMap)},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
		settings: config.Settings{
			Bridge:                      "USDT",
			SupportedCoins:              domain.CoinList{"A", "C", "D", "E"},
			SplitFraction:               0.5,
			SignificantBalanceThreshold: 20,
			MinBalanceForScouting:       15,
		},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Exchange: h.ex,
		State:    h.state,
		Ratios:   h.ratios,
		History:  h.history,
		Notifier: h.notifier,
		Settings: h.settings,
	}
}

func (h *harness) parallel() *Parallel {
	return NewParallel(NewBase(h.deps()))
}
