package binance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// GetBalance implementa ports.Exchange con el balance libre de la cuenta.
// El snapshot de la cuenta se reutiliza unos segundos y se invalida tras
// cada orden.
func (e *Exchange) GetBalance(ctx context.Context, asset domain.Coin) (float64, error) {
	balances, err := e.accountBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance.GetBalance: %w", err)
	}
	return balances[string(asset)], nil
}

func (e *Exchange) accountBalances(ctx context.Context) (map[string]float64, error) {
	if v, ok := e.balances.Get(balancesKey); ok {
		return v.(map[string]float64), nil
	}

	body, err := e.client.signedGet(ctx, "/api/v3/account", url.Values{"omitZeroBalances": {"true"}})
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	balances := make(map[string]float64)
	for _, b := range gjson.GetBytes(body, "balances").Array() {
		balances[b.Get("asset").String()] = b.Get("free").Float()
	}
	e.balances.Set(balancesKey, balances, cache.DefaultExpiration)
	return balances, nil
}

func (e *Exchange) invalidateBalances() {
	e.balances.Delete(balancesKey)
}
