package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Console implementa ports.Notifier.
type Console struct {
	out io.Writer
	now func() time.Time
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, now func() time.Time) *Console {
	if now == nil {
		now = time.Now
	}
	return &Console{out: w, now: now}
}

// Progress escribe la línea de scouting terminada en \r para que el siguiente
// ciclo la sobreescriba en la terminal.
func (c *Console) Progress(coin, bridge domain.Coin) {
	fmt.Fprintf(c.out, "%s - I am scouting the best trades. Current coin: %s \r",
		c.now().Format("2006-01-02 15:04:05"), coin.Symbol(bridge))
}

// PrintQueue imprime el working set de la estrategia en orden de evaluación.
func (c *Console) PrintQueue(queue []domain.Coin, current domain.Coin) {
	fmt.Fprintf(c.out, "\n── WORKING SET (%d) ──\n", len(queue))
	if len(queue) == 0 {
		fmt.Fprintf(c.out, "  (empty, next cycle evaluates current coin %s)\n", current)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Coin", "Current")
	for i, coin := range queue {
		mark := ""
		if coin == current {
			mark = "*"
		}
		table.Append(fmt.Sprintf("%d", i+1), string(coin), mark)
	}
	table.Render()
}

// PrintTrades imprime los trades en una tabla, del más antiguo al más reciente.
func (c *Console) PrintTrades(trades []domain.Trade) {
	fmt.Fprintf(c.out, "\n── TRADES (%d) ──\n", len(trades))
	if len(trades) == 0 {
		fmt.Fprintln(c.out, "  no trades yet")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "From", "To", "Sold", "Bridge", "Bought", "Price", "Status")
	for _, t := range trades {
		table.Append(
			t.At.Local().Format("01-02 15:04:05"),
			string(t.Origin),
			string(t.Destination),
			fmt.Sprintf("%.6f", t.OriginQty),
			fmt.Sprintf("%.2f %s", t.BridgeQty, t.Bridge),
			fmt.Sprintf("%.6f", t.DestQty),
			fmt.Sprintf("%.6f", t.Price),
			string(t.Status),
		)
	}
	table.Render()
}

// PrintCoinValues imprime el último snapshot de posiciones valoradas en bridge.
func (c *Console) PrintCoinValues(values []domain.CoinValue, bridge domain.Coin) {
	fmt.Fprintf(c.out, "\n── HOLDINGS ──\n")
	if len(values) == 0 {
		fmt.Fprintln(c.out, "  no snapshot recorded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Coin", "Balance", "Price", "Value "+string(bridge))
	var total float64
	for _, v := range values {
		total += v.BridgeValue
		table.Append(
			string(v.Coin),
			fmt.Sprintf("%.6f", v.Balance),
			fmt.Sprintf("%.6f", v.Price),
			fmt.Sprintf("%.2f", v.BridgeValue),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "  Total: %.2f %s\n", total, bridge)
}
