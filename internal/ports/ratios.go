package ports

import (
	"context"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// RatioProvider compara una moneda en cartera contra cada otro candidato.
type RatioProvider interface {
	// Ratios devuelve, para cada otra moneda con precio conocido, un ratio
	// con signo. Positivo significa que cambiar coin -> other es favorable.
	Ratios(ctx context.Context, coin domain.Coin, coinPrice float64) (domain.RatioMap, error)

	// UpdateThresholds reinicia cada par X -> coin al ratio de precios actual.
	// Se llama tras comprar coin a coinPrice.
	UpdateThresholds(ctx context.Context, coin domain.Coin, coinPrice float64) error
}
