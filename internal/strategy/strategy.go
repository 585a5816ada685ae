package strategy

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// Strategy define el contrato de una estrategia de rotación.
// El Runner la invoca desde una sola goroutine: nunca hay dos ciclos a la vez.
type Strategy interface {
	// Name devuelve el identificador único de la estrategia.
	Name() string

	// Initialize prepara el estado inicial. Un error aquí es fatal.
	Initialize(ctx context.Context) error

	// Scout ejecuta un ciclo de evaluación de saltos.
	Scout(ctx context.Context) error

	// BridgeScout intenta invertir el bridge ocioso cuando la moneda actual
	// no tiene balance suficiente para operar.
	BridgeScout(ctx context.Context) error
}

// QueueReporter lo implementan las estrategias con working set en memoria.
type QueueReporter interface {
	Queue() []domain.Coin
}

// Registry mantiene las estrategias disponibles indexadas por nombre.
type Registry map[string]Strategy

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// Register añade una estrategia al registry.
func (r Registry) Register(s Strategy) {
	r[s.Name()] = s
}

// Get devuelve la estrategia por nombre.
func (r Registry) Get(name string) (Strategy, bool) {
	s, ok := r[name]
	return s, ok
}

// New construye la estrategia configurada sobre una Base compartida.
func New(name string, deps Deps) (Strategy, error) {
	base := NewBase(deps)

	r := NewRegistry()
	r.Register(NewDefault(base))
	r.Register(NewParallel(base))

	s, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("strategy.New: %q: %w", name, domain.ErrUnknownStrategy)
	}
	return s, nil
}
