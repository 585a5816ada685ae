package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

const (
	priceTTL       = 5 * time.Second
	exchangeTTL    = time.Hour
	feeTTL         = 24 * time.Hour
	balanceTTL     = 2 * time.Second
	defaultFeeRate = 0.001

	allPricesKey = "__all__"
	symbolsKey   = "symbols"
	balancesKey  = "balances"
)

// Exchange implementa ports.Exchange sobre la API spot de Binance.
// Precios, filtros de mercado, fees y balances se cachean con go-cache;
// StreamPrices mantiene los precios frescos sin gastar request weight.
type Exchange struct {
	client   *Client
	prices   *cache.Cache // symbol → float64
	markets  *cache.Cache // symbolsKey → map[string]symbolInfo
	fees     *cache.Cache // symbol → float64
	balances *cache.Cache // balancesKey → map[string]float64

	refreshMu sync.Mutex
}

var _ ports.Exchange = (*Exchange)(nil)

// NewExchange crea el adapter sobre el client dado.
func NewExchange(client *Client) *Exchange {
	return &Exchange{
		client:   client,
		prices:   cache.New(priceTTL, time.Minute),
		markets:  cache.New(exchangeTTL, 10*time.Minute),
		fees:     cache.New(feeTTL, time.Hour),
		balances: cache.New(balanceTTL, time.Minute),
	}
}

// HasCredentials indica si el adapter puede operar la cuenta.
func (e *Exchange) HasCredentials() bool {
	return e.client.HasCredentials()
}

// GetTickerPrice implementa ports.PriceSource. Ante un miss refresca todos
// los tickers de una vez (weight 4) en lugar de pedir el símbolo suelto.
func (e *Exchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	if v, ok := e.prices.Get(symbol); ok {
		return v.(float64), nil
	}

	if err := e.refreshPrices(ctx); err != nil {
		return 0, fmt.Errorf("binance.GetTickerPrice: %w", err)
	}
	if v, ok := e.prices.Get(symbol); ok {
		return v.(float64), nil
	}
	return 0, fmt.Errorf("binance.GetTickerPrice: %s: %w", symbol, domain.ErrPriceNotFound)
}

// GetMinNotional implementa ports.Exchange con el filtro NOTIONAL (o el
// antiguo MIN_NOTIONAL) del mercado.
func (e *Exchange) GetMinNotional(ctx context.Context, origin, bridge domain.Coin) (float64, error) {
	info, err := e.symbol(ctx, origin.Symbol(bridge))
	if err != nil {
		return 0, fmt.Errorf("binance.GetMinNotional: %w", err)
	}
	return info.MinNotional, nil
}

// GetFee implementa ports.Exchange. Sin credenciales, o si el endpoint
// falla, usa el taker fee estándar.
func (e *Exchange) GetFee(ctx context.Context, origin, bridge domain.Coin) (float64, error) {
	symbol := origin.Symbol(bridge)
	if v, ok := e.fees.Get(symbol); ok {
		return v.(float64), nil
	}
	if !e.client.HasCredentials() {
		return defaultFeeRate, nil
	}

	fee := defaultFeeRate
	body, err := e.client.signedGet(ctx, "/sapi/v1/asset/tradeFee", url.Values{"symbol": {symbol}})
	if err != nil {
		slog.Debug("binance: trade fee unavailable, using default", "symbol", symbol, "err", err)
	} else if r := gjson.ParseBytes(body).Get("0.takerCommission"); r.Exists() {
		fee = r.Float()
	}

	e.fees.Set(symbol, fee, cache.DefaultExpiration)
	return fee, nil
}

// ApplyTickers vuelca en la cache un array de tickers del stream
// (`s` símbolo, `c` último precio). Devuelve cuántos aplicó.
func (e *Exchange) ApplyTickers(msg []byte) int {
	n := 0
	gjson.ParseBytes(msg).ForEach(func(_, t gjson.Result) bool {
		symbol := t.Get("s").String()
		price := t.Get("c").Float()
		if symbol != "" && price > 0 {
			e.prices.Set(symbol, price, cache.DefaultExpiration)
			n++
		}
		return true
	})
	return n
}

// refreshPrices trae todos los tickers. Un refresh reciente se reutiliza
// para que un símbolo inexistente no dispare una request por llamada.
func (e *Exchange) refreshPrices(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	if _, ok := e.prices.Get(allPricesKey); ok {
		return nil
	}

	body, err := e.client.get(ctx, "/api/v3/ticker/price", nil)
	if err != nil {
		return fmt.Errorf("fetch tickers: %w", err)
	}

	n := 0
	gjson.ParseBytes(body).ForEach(func(_, t gjson.Result) bool {
		if price := t.Get("price").Float(); price > 0 {
			e.prices.Set(t.Get("symbol").String(), price, cache.DefaultExpiration)
			n++
		}
		return true
	})
	e.prices.Set(allPricesKey, true, cache.DefaultExpiration)

	slog.Debug("binance: tickers refreshed", "symbols", n)
	return nil
}

// symbol devuelve los filtros de un mercado, cargando exchangeInfo si hace falta.
func (e *Exchange) symbol(ctx context.Context, symbol string) (symbolInfo, error) {
	symbols, err := e.symbols(ctx)
	if err != nil {
		return symbolInfo{}, err
	}
	info, ok := symbols[symbol]
	if !ok {
		return symbolInfo{}, fmt.Errorf("%s: %w", symbol, domain.ErrPriceNotFound)
	}
	return info, nil
}

func (e *Exchange) symbols(ctx context.Context) (map[string]symbolInfo, error) {
	if v, ok := e.markets.Get(symbolsKey); ok {
		return v.(map[string]symbolInfo), nil
	}

	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	if v, ok := e.markets.Get(symbolsKey); ok {
		return v.(map[string]symbolInfo), nil
	}

	body, err := e.client.get(ctx, "/api/v3/exchangeInfo", url.Values{"permissions": {"SPOT"}})
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}

	symbols := parseExchangeInfo(body)
	e.markets.Set(symbolsKey, symbols, cache.DefaultExpiration)
	return symbols, nil
}

func parseExchangeInfo(body []byte) map[string]symbolInfo {
	out := make(map[string]symbolInfo)
	for _, s := range gjson.GetBytes(body, "symbols").Array() {
		info := symbolInfo{
			Symbol:         s.Get("symbol").String(),
			Base:           s.Get("baseAsset").String(),
			Quote:          s.Get("quoteAsset").String(),
			Trading:        s.Get("status").String() == "TRADING",
			QuotePrecision: int32(s.Get("quoteAssetPrecision").Int()),
		}
		if info.QuotePrecision == 0 {
			info.QuotePrecision = 8
		}
		for _, f := range s.Get("filters").Array() {
			switch f.Get("filterType").String() {
			case "NOTIONAL", "MIN_NOTIONAL":
				info.MinNotional = f.Get("minNotional").Float()
			case "LOT_SIZE":
				info.StepSize = f.Get("stepSize").String()
				info.MinQty = f.Get("minQty").Float()
			}
		}
		out[info.Symbol] = info
	}
	return out
}
