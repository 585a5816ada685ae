package notify

import (
	"fmt"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// ReportInput agrupa los datos necesarios para imprimir el reporte.
type ReportInput struct {
	Bridge      domain.Coin
	Strategy    string
	Paper       bool
	CurrentCoin domain.Coin
	Queue       []domain.Coin
	History     []domain.CurrentCoinEntry
	Trades      []domain.Trade
	Holdings    []domain.CoinValue
}

// PrintReport imprime el informe completo del trader.
func (c *Console) PrintReport(in ReportInput) {
	mode := "LIVE"
	if in.Paper {
		mode = "PAPER"
	}

	fmt.Fprintf(c.out, "\n╔══════════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(c.out, "║                     ROTATION REPORT                          ║\n")
	fmt.Fprintf(c.out, "╚══════════════════════════════════════════════════════════════╝\n\n")

	fmt.Fprintf(c.out, "  Mode:         %s\n", mode)
	fmt.Fprintf(c.out, "  Strategy:     %s\n", in.Strategy)
	fmt.Fprintf(c.out, "  Bridge:       %s\n", in.Bridge)
	if in.CurrentCoin != "" {
		fmt.Fprintf(c.out, "  Current coin: %s\n", in.CurrentCoin)
	} else {
		fmt.Fprintf(c.out, "  Current coin: (none)\n")
	}

	complete, failed := countTrades(in.Trades)
	fmt.Fprintf(c.out, "  Trades:       %d complete | %d failed\n", complete, failed)
	fmt.Fprintf(c.out, "  Jumps:        %d\n", jumps(in.History))

	if in.Queue != nil {
		c.PrintQueue(in.Queue, in.CurrentCoin)
	}
	c.PrintTrades(in.Trades)
	c.PrintCoinValues(in.Holdings, in.Bridge)
	fmt.Fprintln(c.out)
}

func countTrades(trades []domain.Trade) (complete, failed int) {
	for _, t := range trades {
		switch t.Status {
		case domain.TradeStatusComplete:
			complete++
		case domain.TradeStatusFailed:
			failed++
		}
	}
	return complete, failed
}

// jumps cuenta los cambios de moneda actual en el histórico.
func jumps(history []domain.CurrentCoinEntry) int {
	n := 0
	for i := 1; i < len(history); i++ {
		if history[i].Coin != history[i-1].Coin {
			n++
		}
	}
	return n
}
