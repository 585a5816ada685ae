package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// Sell implementa ports.Exchange con una orden MARKET por cantidad, redondeada
// hacia abajo al LOT_SIZE del mercado.
func (e *Exchange) Sell(ctx context.Context, origin, bridge domain.Coin, qty float64) (*domain.TradeResult, error) {
	symbol := origin.Symbol(bridge)
	info, err := e.symbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("binance.Sell: %w", err)
	}
	if !info.Trading {
		return nil, fmt.Errorf("binance.Sell: %s not trading: %w", symbol, domain.ErrPriceNotFound)
	}

	quantity := floorToStep(qty, info.StepSize)
	q := quantity.InexactFloat64()
	if q <= 0 || q < info.MinQty {
		return nil, fmt.Errorf("binance.Sell: %s qty %s below lot size: %w", symbol, quantity, domain.ErrBelowMinNotional)
	}

	price, err := e.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("binance.Sell: %w", err)
	}
	if q*price < info.MinNotional {
		return nil, fmt.Errorf("binance.Sell: %s value %.4f < %.4f: %w", symbol, q*price, info.MinNotional, domain.ErrBelowMinNotional)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(domain.SideSell))
	params.Set("type", "MARKET")
	params.Set("quantity", quantity.String())

	res, err := e.placeOrder(ctx, params, domain.SideSell)
	if err != nil {
		return nil, fmt.Errorf("binance.Sell: %w", err)
	}
	return res, nil
}

// Buy implementa ports.Exchange con una orden MARKET por quoteOrderQty: se
// gasta una cantidad fija de bridge.
func (e *Exchange) Buy(ctx context.Context, dest, bridge domain.Coin, quoteQty float64) (*domain.TradeResult, error) {
	symbol := dest.Symbol(bridge)
	info, err := e.symbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("binance.Buy: %w", err)
	}
	if !info.Trading {
		return nil, fmt.Errorf("binance.Buy: %s not trading: %w", symbol, domain.ErrPriceNotFound)
	}

	quote := floorToPrecision(quoteQty, info.QuotePrecision)
	if qf := quote.InexactFloat64(); qf <= 0 || qf < info.MinNotional {
		return nil, fmt.Errorf("binance.Buy: %s quote %s < %.4f: %w", symbol, quote, info.MinNotional, domain.ErrBelowMinNotional)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(domain.SideBuy))
	params.Set("type", "MARKET")
	params.Set("quoteOrderQty", quote.String())

	res, err := e.placeOrder(ctx, params, domain.SideBuy)
	if err != nil {
		return nil, fmt.Errorf("binance.Buy: %w", err)
	}
	return res, nil
}

func (e *Exchange) placeOrder(ctx context.Context, params url.Values, side domain.Side) (*domain.TradeResult, error) {
	params.Set("newOrderRespType", "RESULT")

	body, err := e.client.signedPost(ctx, "/api/v3/order", params)
	e.invalidateBalances()
	if err != nil {
		return nil, err
	}

	fill := parseOrder(body)
	if fill.ExecutedQty <= 0 {
		return nil, fmt.Errorf("order %d %s: status %s, nothing executed", fill.OrderID, fill.Symbol, fill.Status)
	}

	slog.Info("binance: order filled",
		"symbol", fill.Symbol,
		"side", side,
		"status", fill.Status,
		"qty", fill.ExecutedQty,
		"quote", fill.QuoteQty,
	)

	return &domain.TradeResult{
		OrderID:  strconv.FormatInt(fill.OrderID, 10),
		Symbol:   fill.Symbol,
		Side:     side,
		Quantity: fill.ExecutedQty,
		QuoteQty: fill.QuoteQty,
		Price:    fill.QuoteQty / fill.ExecutedQty,
		At:       e.client.now(),
	}, nil
}

func parseOrder(body []byte) orderFill {
	v := gjson.ParseBytes(body)
	return orderFill{
		OrderID:     v.Get("orderId").Int(),
		Symbol:      v.Get("symbol").String(),
		Status:      v.Get("status").String(),
		ExecutedQty: v.Get("executedQty").Float(),
		QuoteQty:    v.Get("cummulativeQuoteQty").Float(),
	}
}
