package binance

import "github.com/shopspring/decimal"

// floorToStep redondea qty hacia abajo al múltiplo de step (LOT_SIZE).
// Un step vacío o inválido deja la cantidad intacta.
func floorToStep(qty float64, step string) decimal.Decimal {
	d := decimal.NewFromFloat(qty)
	s, err := decimal.NewFromString(step)
	if err != nil || !s.IsPositive() {
		return d
	}
	return d.Div(s).Floor().Mul(s)
}

// floorToPrecision trunca v a places decimales.
func floorToPrecision(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Truncate(places)
}
