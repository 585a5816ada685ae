package ports

import (
	"context"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// PriceSource reporta el último precio de un ticker.
type PriceSource interface {
	// GetTickerPrice devuelve el precio de symbol (p.ej. "BTCUSDT").
	// Devuelve domain.ErrPriceNotFound si el exchange no lo lista.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}

// Exchange es el servicio de precios y trading: market data, balances y
// órdenes a mercado contra el bridge.
type Exchange interface {
	PriceSource

	// GetBalance devuelve el balance libre de asset. Cero si no se tiene.
	GetBalance(ctx context.Context, asset domain.Coin) (float64, error)

	// GetMinNotional devuelve el valor mínimo de orden, en bridge, del
	// mercado origin/bridge.
	GetMinNotional(ctx context.Context, origin, bridge domain.Coin) (float64, error)

	// GetFee devuelve el taker fee del mercado origin/bridge.
	GetFee(ctx context.Context, origin, bridge domain.Coin) (float64, error)

	// Sell vende qty de origin por bridge a mercado.
	Sell(ctx context.Context, origin, bridge domain.Coin, qty float64) (*domain.TradeResult, error)

	// Buy gasta quoteQty de bridge comprando dest a mercado.
	Buy(ctx context.Context, dest, bridge domain.Coin, quoteQty float64) (*domain.TradeResult, error)
}
