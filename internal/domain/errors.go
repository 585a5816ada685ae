package domain

import "errors"

var (
	// ErrPriceNotFound: el exchange no tiene ticker para el símbolo.
	ErrPriceNotFound = errors.New("price not found")

	// ErrNoCurrentCoin: el state store aún no tiene moneda actual.
	ErrNoCurrentCoin = errors.New("no current coin")

	// ErrUnsupportedCoin: la moneda no está en la lista soportada.
	ErrUnsupportedCoin = errors.New("coin not in supported list")

	// ErrInvalidSplitFraction: split_fraction sin definir o >= 1.
	ErrInvalidSplitFraction = errors.New("invalid split fraction")

	// ErrBelowMinNotional: la orden está bajo el mínimo del exchange.
	ErrBelowMinNotional = errors.New("order below min notional")

	// ErrInsufficientBalance: la cuenta no cubre la orden.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownStrategy: nombre de estrategia sin implementación.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// ConfigError representa un problema de configuración. Nunca es reintentable.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsBenign indica si err es una condición local al ciclo (dato ausente u
// orden rechazada) que se salta en vez de propagarse.
func IsBenign(err error) bool {
	return errors.Is(err, ErrPriceNotFound) ||
		errors.Is(err, ErrBelowMinNotional) ||
		errors.Is(err, ErrInsufficientBalance)
}
