package domain

import "strings"

// Coin es el símbolo de un activo negociable (p.ej. "BTC"). Los símbolos se
// normalizan a mayúsculas antes de llegar a las estrategias.
type Coin string

// NormalizeCoin recorta y pasa a mayúsculas un símbolo crudo.
func NormalizeCoin(s string) Coin {
	return Coin(strings.ToUpper(strings.TrimSpace(s)))
}

// Symbol devuelve el ticker del exchange para la moneda cotizada en bridge,
// p.ej. BTC + USDT -> "BTCUSDT".
func (c Coin) Symbol(bridge Coin) string {
	return string(c) + string(bridge)
}

func (c Coin) String() string {
	return string(c)
}

// CoinList es el conjunto configurado de monedas soportadas.
type CoinList []Coin

// Contains indica si c está en la lista.
func (l CoinList) Contains(c Coin) bool {
	for _, x := range l {
		if x == c {
			return true
		}
	}
	return false
}
