package ports

import (
	"github.com/alejandrodnm/rotabot/internal/domain"
)

// Notifier es la salida visible para el operador.
type Notifier interface {
	// Progress muestra qué moneda se está evaluando. Efímero: sobreescribe
	// la línea anterior en vez de hacer crecer el log.
	Progress(coin, bridge domain.Coin)
}
