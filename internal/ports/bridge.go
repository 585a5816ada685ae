package ports

import (
	"context"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// BridgeTrader ejecuta saltos origin -> bridge -> destination.
type BridgeTrader interface {
	// TransactionThroughBridge vende originQty de pair.From por el bridge y
	// compra pair.To con lo obtenido. Resultado nil sin error significa que
	// el exchange rechazó una de las patas y no hubo salto.
	TransactionThroughBridge(ctx context.Context, pair domain.PairKey, originQty float64) (*domain.TradeResult, error)

	// BuyAlt gasta todo el balance del bridge en coin.
	BuyAlt(ctx context.Context, coin domain.Coin) (*domain.TradeResult, error)
}
