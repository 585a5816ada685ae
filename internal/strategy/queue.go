package strategy

import "github.com/alejandrodnm/rotabot/internal/domain"

// coinQueue es la cola FIFO del working set. Vive solo en memoria y no es
// segura para uso concurrente: la usa una única goroutine de ciclo.
type coinQueue struct {
	items []domain.Coin
}

func (q *coinQueue) PushBack(c domain.Coin) {
	q.items = append(q.items, c)
}

func (q *coinQueue) PushFront(c domain.Coin) {
	q.items = append([]domain.Coin{c}, q.items...)
}

// PopFront saca la cabeza de la cola. ok=false si está vacía.
func (q *coinQueue) PopFront() (domain.Coin, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	c := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return c, true
}

func (q *coinQueue) Contains(c domain.Coin) bool {
	for _, x := range q.items {
		if x == c {
			return true
		}
	}
	return false
}

func (q *coinQueue) Len() int {
	return len(q.items)
}

// Snapshot devuelve una copia del contenido, de cabeza a cola.
func (q *coinQueue) Snapshot() []domain.Coin {
	out := make([]domain.Coin, len(q.items))
	copy(out, q.items)
	return out
}
