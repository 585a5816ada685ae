package domain

import "time"

// ScoutRecord es un candidato de salto evaluado, guardado para análisis posterior.
type ScoutRecord struct {
	Pair             PairKey
	TargetRatio      float64 // umbral persistido
	CurrentCoinPrice float64
	OtherCoinPrice   float64
	At               time.Time
}

// CoinValue es un snapshot periódico de una posición valorada en bridge.
type CoinValue struct {
	Coin        Coin
	Balance     float64
	Price       float64 // bridge por unidad
	BridgeValue float64
	At          time.Time
}

// CurrentCoinEntry es una fila del histórico del puntero "current coin".
// La última entrada es la moneda actual.
type CurrentCoinEntry struct {
	Coin Coin
	At   time.Time
}
