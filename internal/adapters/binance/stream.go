package binance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamReadTimeout = 60 * time.Second
	streamBaseDelay   = time.Second
	streamMaxDelay    = time.Minute
	streamMaxRetries  = 6
	miniTickerStream  = "!miniTicker@arr"
)

// StreamPrices mantiene la cache de precios con el stream de mini tickers.
// Reconecta con backoff exponencial hasta que se cancela ctx.
func (e *Exchange) StreamPrices(ctx context.Context, streamURL string) error {
	retry := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		connected, err := e.streamOnce(ctx, streamURL)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			retry = 0
		}

		delay := streamBackoff(retry)
		retry++
		if retry > streamMaxRetries {
			retry = 0
		}
		slog.Warn("binance: price stream disconnected", "err", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// streamOnce abre una conexión y lee hasta que falla. connected indica si
// llegó a establecerse, para resetear el backoff.
func (e *Exchange) streamOnce(ctx context.Context, streamURL string) (connected bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	u := strings.TrimRight(streamURL, "/") + "/" + miniTickerStream

	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Info("binance: price stream connected", "url", u)
	for {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		if n := e.ApplyTickers(msg); n > 0 {
			slog.Debug("binance: stream tickers applied", "symbols", n)
		}
	}
}

func streamBackoff(retry int) time.Duration {
	if retry > streamMaxRetries {
		retry = streamMaxRetries
	}
	delay := streamBaseDelay * time.Duration(math.Pow(2, float64(retry)))
	if delay > streamMaxDelay {
		delay = streamMaxDelay
	}
	return delay
}
