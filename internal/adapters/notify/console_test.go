package notify_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/rotabot/internal/adapters/notify"
	"github.com/alejandrodnm/rotabot/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
}

func TestConsole_Progress(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, fixedNow)

	n.Progress("ETH", "USDT")

	out := buf.String()
	assert.Equal(t, "2025-03-14 09:26:53 - I am scouting the best trades. Current coin: ETHUSDT \r", out)
	assert.NotContains(t, out, "\n")
}

func TestConsole_PrintQueue(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, fixedNow)

	n.PrintQueue([]domain.Coin{"ADA", "BTC"}, "BTC")
	out := buf.String()
	assert.Contains(t, out, "WORKING SET (2)")
	assert.Contains(t, out, "ADA")
	assert.Contains(t, out, "BTC")

	buf.Reset()
	n.PrintQueue(nil, "SOL")
	assert.Contains(t, buf.String(), "current coin SOL")
}

func TestConsole_PrintTrades(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, fixedNow)

	n.PrintTrades(nil)
	assert.Contains(t, buf.String(), "no trades yet")

	buf.Reset()
	n.PrintTrades([]domain.Trade{{
		Origin:      "BTC",
		Destination: "ETH",
		Bridge:      "USDT",
		OriginQty:   0.01,
		BridgeQty:   600,
		DestQty:     0.24,
		Price:       2500,
		Status:      domain.TradeStatusComplete,
		At:          fixedNow(),
	}})
	out := buf.String()
	assert.Contains(t, out, "TRADES (1)")
	assert.Contains(t, out, "600.00 USDT")
	assert.Contains(t, out, "2500.000000")
	assert.Contains(t, out, "COMPLETE")
}

func TestConsole_PrintReport(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, fixedNow)

	n.PrintReport(notify.ReportInput{
		Bridge:      "USDT",
		Strategy:    "parallel_transactions",
		Paper:       true,
		CurrentCoin: "ETH",
		Queue:       []domain.Coin{"ETH", "ADA"},
		History: []domain.CurrentCoinEntry{
			{Coin: "BTC"}, {Coin: "ETH"}, {Coin: "ETH"}, {Coin: "ADA"},
		},
		Trades: []domain.Trade{
			{Origin: "BTC", Destination: "ETH", Status: domain.TradeStatusComplete, At: fixedNow()},
			{Origin: "ETH", Destination: "ADA", Status: domain.TradeStatusFailed, At: fixedNow()},
		},
		Holdings: []domain.CoinValue{
			{Coin: "ETH", Balance: 0.5, Price: 2500, BridgeValue: 1250},
			{Coin: "ADA", Balance: 100, Price: 0.5, BridgeValue: 50},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "ROTATION REPORT")
	assert.Contains(t, out, "PAPER")
	assert.Contains(t, out, "1 complete | 1 failed")
	assert.Contains(t, out, "Jumps:        2")
	assert.Contains(t, out, "Total: 1300.00 USDT")
	assert.True(t, strings.Index(out, "WORKING SET") < strings.Index(out, "TRADES"))
}
