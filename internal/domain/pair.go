package domain

import (
	"fmt"
	"sort"
)

// Pair es un salto ordenado (from, to) entre dos monedas. Ratio guarda el
// umbral persistido que usa el motor de ratios: el ratio de precios from/to
// observado la última vez que se compró To.
type Pair struct {
	From  Coin
	To    Coin
	Ratio float64 // 0 = aún no inicializado
}

// Key identifica el par sin su umbral.
func (p Pair) Key() PairKey {
	return PairKey{From: p.From, To: p.To}
}

func (p Pair) String() string {
	return fmt.Sprintf("<%s->%s>", p.From, p.To)
}

// PairKey es la clave de un RatioMap.
type PairKey struct {
	From Coin
	To   Coin
}

func (k PairKey) String() string {
	return fmt.Sprintf("<%s->%s>", k.From, k.To)
}

// RatioMap es el resultado por ciclo del motor de ratios. Un valor positivo
// significa que saltar From -> To es favorable a precios actuales.
// Transitorio: se recalcula en cada ciclo y nunca se persiste.
type RatioMap map[PairKey]float64

// PairRatio es una entrada de un RatioMap ya aplanado.
type PairRatio struct {
	Pair  PairKey
	Ratio float64
}

// Positive devuelve solo las entradas con ratio estrictamente positivo.
func (m RatioMap) Positive() RatioMap {
	out := make(RatioMap, len(m))
	for k, v := range m {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// SortedAscending aplana el mapa ordenado por ratio, el menor primero.
// Empates ordenados por símbolo destino para que el resultado sea determinista.
func (m RatioMap) SortedAscending() []PairRatio {
	out := make([]PairRatio, 0, len(m))
	for k, v := range m {
		out = append(out, PairRatio{Pair: k, Ratio: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio < out[j].Ratio
		}
		return out[i].Pair.To < out[j].Pair.To
	})
	return out
}

// Best devuelve la entrada con mayor ratio.
func (m RatioMap) Best() (PairRatio, bool) {
	sorted := m.SortedAscending()
	if len(sorted) == 0 {
		return PairRatio{}, false
	}
	return sorted[len(sorted)-1], true
}
