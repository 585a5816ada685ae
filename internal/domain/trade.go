package domain

import "time"

// Side de una orden a mercado contra el bridge.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeStatus es el ciclo de vida de un trade registrado.
type TradeStatus string

const (
	TradeStatusStarting TradeStatus = "STARTING"
	TradeStatusComplete TradeStatus = "COMPLETE"
	TradeStatusFailed   TradeStatus = "FAILED"
)

// TradeResult es lo que reporta el exchange tras una orden a mercado ejecutada.
type TradeResult struct {
	OrderID  string
	Symbol   string
	Side     Side
	Quantity float64 // base asset ejecutado
	QuoteQty float64 // bridge gastado (buy) o recibido (sell)
	Price    float64 // precio medio de fill en unidades de bridge
	At       time.Time
}

// Trade es el registro persistido de un salto: origin -> bridge -> destination.
type Trade struct {
	ID          string
	Origin      Coin
	Destination Coin
	Bridge      Coin
	OriginQty   float64 // unidades de origin vendidas (0 si se saltó la venta)
	BridgeQty   float64 // bridge usado en la compra
	DestQty     float64 // unidades de destination compradas
	Price       float64 // precio de destination en bridge
	Status      TradeStatus
	At          time.Time
}
