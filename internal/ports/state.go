package ports

import (
	"context"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// StateStore guarda el único puntero "current coin". Gana la última escritura.
// Lo leen y escriben tanto la capa base como la capa de rotación.
type StateStore interface {
	// GetCurrentCoin devuelve domain.ErrNoCurrentCoin si nunca se fijó.
	GetCurrentCoin(ctx context.Context) (domain.Coin, error)
	SetCurrentCoin(ctx context.Context, coin domain.Coin) error
}
