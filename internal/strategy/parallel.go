package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

const parallelName = "parallel_transactions"

// maxPriceMisses es cuántos ciclos seguidos sin precio aguanta una moneda
// encolada antes de salir del working set.
const maxPriceMisses = 3

// Parallel rota el balance entre varias monedas a la vez. En vez de una sola
// moneda actual mantiene un working set FIFO: cada ciclo evalúa la cabeza,
// abre tantos saltos favorables como pueda usando una fracción del balance,
// y vuelve a encolar lo que siga mereciendo seguimiento.
type Parallel struct {
	*Base
	queue  coinQueue
	misses map[domain.Coin]int
}

// NewParallel crea la estrategia sobre la Base dada, con la cola vacía.
func NewParallel(base *Base) *Parallel {
	return &Parallel{Base: base, misses: make(map[domain.Coin]int)}
}

// Name implementa Strategy.
func (p *Parallel) Name() string {
	return parallelName
}

// Queue devuelve una copia del working set actual.
func (p *Parallel) Queue() []domain.Coin {
	return p.queue.Snapshot()
}

// Initialize valida split_fraction (0 < f < 1) y fija la moneda inicial.
func (p *Parallel) Initialize(ctx context.Context) error {
	f := p.settings.SplitFraction
	if f <= 0 || f >= 1 {
		return &domain.ConfigError{
			Field: "trader.split_fraction",
			Err: fmt.Errorf("%w: %v does not make sense for parallel transactions, "+
				"use another strategy or provide a fraction in (0, 1)", domain.ErrInvalidSplitFraction, f),
		}
	}
	return p.InitializeCurrentCoin(ctx)
}

// Scout evalúa la siguiente moneda del working set, o la moneda actual
// persistida si la cola está vacía.
func (p *Parallel) Scout(ctx context.Context) error {
	coin, fromQueue := p.queue.PopFront()
	if fromQueue {
		if err := p.state.SetCurrentCoin(ctx, coin); err != nil {
			p.queue.PushFront(coin)
			return fmt.Errorf("parallel.Scout: set current coin: %w", err)
		}
	} else {
		var err error
		coin, err = p.state.GetCurrentCoin(ctx)
		if err != nil {
			return fmt.Errorf("parallel.Scout: current coin: %w", err)
		}
	}

	p.progress(coin)

	price, err := p.exchange.GetTickerPrice(ctx, coin.Symbol(p.settings.Bridge))
	if err != nil {
		if errors.Is(err, domain.ErrPriceNotFound) {
			slog.Info("parallel: skipping scouting, current coin not found", "symbol", coin.Symbol(p.settings.Bridge))
		} else {
			slog.Warn("parallel: skipping scouting, price unavailable", "symbol", coin.Symbol(p.settings.Bridge), "err", err)
		}
		if fromQueue {
			p.requeueMissingPrice(coin)
		}
		return nil
	}
	delete(p.misses, coin)

	p.jumpToBestCoins(ctx, coin, price)
	return nil
}

// requeueMissingPrice devuelve coin a la cola salvo que lleve maxPriceMisses
// ciclos seguidos sin precio (par deslistado o en pausa).
func (p *Parallel) requeueMissingPrice(coin domain.Coin) {
	p.misses[coin]++
	if n := p.misses[coin]; n >= maxPriceMisses {
		slog.Warn("parallel: dropping coin from the queue, no price", "coin", coin, "misses", n)
		delete(p.misses, coin)
		return
	}
	p.queue.PushBack(coin)
}

// jumpToBestCoins intenta cero o más saltos desde coin y deja el working set
// consistente: coin, o las monedas a las que saltó, quedan encoladas.
func (p *Parallel) jumpToBestCoins(ctx context.Context, coin domain.Coin, price float64) {
	bridge := p.settings.Bridge
	split := p.settings.SplitFraction

	ratios, err := p.ratios.Ratios(ctx, coin, price)
	if err != nil {
		slog.Warn("parallel: ratios unavailable", "coin", coin, "err", err)
	}
	candidates := ratios.Positive()

	minNotional, err := p.exchange.GetMinNotional(ctx, coin, bridge)
	if err != nil {
		slog.Warn("parallel: min notional unavailable", "coin", coin, "err", err)
		candidates = nil
	}

	tradeHappened := false

	// Orden ascendente por ratio: se recorren todos, no solo el mejor.
	sorted := candidates.SortedAscending()
	if len(sorted) > 0 {
		slog.Info("parallel: sorted best pairs", "coin", coin, "pairs", pairKeys(sorted))
	}
	for _, pr := range sorted {
		to := pr.Pair.To
		slog.Debug("parallel: evaluating pair", "pair", pr.Pair, "ratio", pr.Ratio, "fraction", split)

		if p.queue.Contains(to) {
			slog.Info("parallel: skipping buy, already in the queue", "coin", to)
			continue
		}

		balance, err := p.exchange.GetBalance(ctx, coin)
		if err != nil {
			slog.Warn("parallel: balance unavailable", "coin", coin, "err", err)
			continue
		}
		balanceInBridge := balance * price

		destBalance, err := p.exchange.GetBalance(ctx, to)
		if err != nil {
			slog.Warn("parallel: balance unavailable", "coin", to, "err", err)
			continue
		}
		destPrice, err := p.exchange.GetTickerPrice(ctx, to.Symbol(bridge))
		if err != nil {
			slog.Info("parallel: skipping pair, destination price unavailable", "pair", pr.Pair, "err", err)
			continue
		}
		destInBridge := destBalance * destPrice
		if destInBridge >= p.settings.SignificantBalanceThreshold {
			slog.Info("parallel: skipping buy, significant balance already held, adding it to the queue",
				"coin", to,
				"balance_in_bridge", destInBridge,
				"threshold", p.settings.SignificantBalanceThreshold,
			)
			p.queue.PushBack(to)
			continue
		}

		qty := SizeOrder(balance, price, split, minNotional)
		if qty == balance {
			slog.Info("parallel: using full balance, split below min notional",
				"coin", coin,
				"balance", balance,
				"split_in_bridge", balanceInBridge*split,
				"min_notional", minNotional,
			)
		}

		slog.Info("parallel: jumping", "from", coin, "to", to, "qty", qty, "balance", balance)
		result, err := p.TransactionThroughBridge(ctx, pr.Pair, qty)
		if err != nil {
			slog.Error("parallel: transaction error", "pair", pr.Pair, "err", err)
		}
		if result != nil {
			tradeHappened = true
			slog.Info("parallel: adding coin to the queue", "coin", to)
			p.queue.PushBack(to)
		}
	}

	if !tradeHappened {
		p.queue.PushBack(coin)
		return
	}

	newBalance, err := p.exchange.GetBalance(ctx, coin)
	if err != nil {
		slog.Warn("parallel: balance unavailable, keeping coin in the queue", "coin", coin, "err", err)
		p.queue.PushBack(coin)
		return
	}
	remaining := newBalance * price
	if remaining >= p.settings.MinBalanceForScouting {
		slog.Info("parallel: re-adding coin to the queue",
			"coin", coin,
			"balance_in_bridge", remaining,
			"threshold", p.settings.MinBalanceForScouting,
		)
		p.queue.PushBack(coin)
		return
	}
	slog.Info("parallel: dropping coin from the queue",
		"coin", coin,
		"balance_in_bridge", remaining,
		"threshold", p.settings.MinBalanceForScouting,
	)
}

// SizeOrder aplica la ley de tamaño: balance*fraction si su valor en bridge
// alcanza el min notional, si no el balance completo.
func SizeOrder(balance, price, fraction, minNotional float64) float64 {
	if balance*price*fraction >= minNotional {
		return balance * fraction
	}
	return balance
}

func pairKeys(prs []domain.PairRatio) []string {
	out := make([]string, len(prs))
	for i, pr := range prs {
		out[i] = pr.Pair.String()
	}
	return out
}
