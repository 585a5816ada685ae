package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

const (
	defaultFeeRate     = 0.001
	defaultMinNotional = 10.0
	// margen para no rechazar ventas del balance completo por redondeo
	balanceEpsilon = 1e-12
)

// Config contiene los parámetros de la simulación.
type Config struct {
	Bridge        domain.Coin
	InitialBridge float64
	FeeRate       float64
	MinNotional   float64
}

// Exchange implementa ports.Exchange con balances virtuales en memoria y
// precios reales. Las órdenes se llenan completas al último precio; el fee
// se descuenta del activo recibido.
type Exchange struct {
	prices ports.PriceSource
	cfg    Config
	now    func() time.Time

	mu       sync.Mutex
	balances map[domain.Coin]float64
}

var _ ports.Exchange = (*Exchange)(nil)

// New crea un exchange simulado con cfg.InitialBridge de bridge.
func New(prices ports.PriceSource, cfg Config) *Exchange {
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = defaultFeeRate
	}
	if cfg.MinNotional <= 0 {
		cfg.MinNotional = defaultMinNotional
	}
	return &Exchange{
		prices:   prices,
		cfg:      cfg,
		now:      time.Now,
		balances: map[domain.Coin]float64{cfg.Bridge: cfg.InitialBridge},
	}
}

// Deposit suma qty al balance virtual de coin.
func (e *Exchange) Deposit(coin domain.Coin, qty float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[coin] += qty
}

// Balances devuelve una copia de los balances no nulos, ordenada por moneda.
func (e *Exchange) Balances() []domain.CoinValue {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.CoinValue, 0, len(e.balances))
	for coin, qty := range e.balances {
		if qty > 0 {
			out = append(out, domain.CoinValue{Coin: coin, Balance: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coin < out[j].Coin })
	return out
}

func (e *Exchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return e.prices.GetTickerPrice(ctx, symbol)
}

func (e *Exchange) GetBalance(_ context.Context, asset domain.Coin) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[asset], nil
}

func (e *Exchange) GetMinNotional(_ context.Context, _, _ domain.Coin) (float64, error) {
	return e.cfg.MinNotional, nil
}

func (e *Exchange) GetFee(_ context.Context, _, _ domain.Coin) (float64, error) {
	return e.cfg.FeeRate, nil
}

// Sell vende qty de origin al último precio.
func (e *Exchange) Sell(ctx context.Context, origin, bridge domain.Coin, qty float64) (*domain.TradeResult, error) {
	symbol := origin.Symbol(bridge)
	price, err := e.prices.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("paper.Sell: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if qty <= 0 || qty > e.balances[origin]+balanceEpsilon {
		return nil, fmt.Errorf("paper.Sell: %s qty %.8f > %.8f: %w", origin, qty, e.balances[origin], domain.ErrInsufficientBalance)
	}
	gross := qty * price
	if gross < e.cfg.MinNotional {
		return nil, fmt.Errorf("paper.Sell: %s value %.4f < %.4f: %w", symbol, gross, e.cfg.MinNotional, domain.ErrBelowMinNotional)
	}

	net := gross * (1 - e.cfg.FeeRate)
	e.balances[origin] -= qty
	if e.balances[origin] < balanceEpsilon {
		delete(e.balances, origin)
	}
	e.balances[bridge] += net

	slog.Info("paper: sell filled", "symbol", symbol, "qty", qty, "price", price, "received", net)
	return e.result(symbol, domain.SideSell, qty, net, price), nil
}

// Buy gasta quoteQty de bridge en dest al último precio.
func (e *Exchange) Buy(ctx context.Context, dest, bridge domain.Coin, quoteQty float64) (*domain.TradeResult, error) {
	symbol := dest.Symbol(bridge)
	price, err := e.prices.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("paper.Buy: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if quoteQty <= 0 || quoteQty > e.balances[bridge]+balanceEpsilon {
		return nil, fmt.Errorf("paper.Buy: %s quote %.4f > %.4f: %w", bridge, quoteQty, e.balances[bridge], domain.ErrInsufficientBalance)
	}
	if quoteQty < e.cfg.MinNotional {
		return nil, fmt.Errorf("paper.Buy: %s quote %.4f < %.4f: %w", symbol, quoteQty, e.cfg.MinNotional, domain.ErrBelowMinNotional)
	}

	qty := quoteQty / price * (1 - e.cfg.FeeRate)
	e.balances[bridge] -= quoteQty
	e.balances[dest] += qty

	slog.Info("paper: buy filled", "symbol", symbol, "quote", quoteQty, "price", price, "qty", qty)
	return e.result(symbol, domain.SideBuy, qty, quoteQty, price), nil
}

func (e *Exchange) result(symbol string, side domain.Side, qty, quote, price float64) *domain.TradeResult {
	return &domain.TradeResult{
		OrderID:  uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		QuoteQty: quote,
		Price:    price,
		At:       e.now(),
	}
}
