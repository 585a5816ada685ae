package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsAndSettings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
trader:
  bridge: usdt
  supported_coins: [btc, eth, ETH, " ada "]
  strategy: parallel_transactions
  split_fraction: 0.5
  significant_balance_threshold: 20
  min_balance_for_scouting: 15
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Trader.ScoutSleepSeconds)
	assert.InDelta(t, 5.0, cfg.Trader.ScoutMultiplier, 1e-9)
	assert.Equal(t, "rotabot.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)

	s := cfg.Settings()
	assert.Equal(t, domain.Coin("USDT"), s.Bridge)
	assert.Equal(t, domain.CoinList{"BTC", "ETH", "ADA"}, s.SupportedCoins)
	assert.Equal(t, domain.Coin(""), s.CurrentCoin)
	assert.InDelta(t, 0.5, s.SplitFraction, 1e-9)
	assert.InDelta(t, 20.0, s.SignificantBalanceThreshold, 1e-9)
	assert.InDelta(t, 15.0, s.MinBalanceForScouting, 1e-9)
}

func TestLoad_SupportedCoinFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "supported_coin_list", "# majors\nBTC\n\neth\n")
	path := writeFile(t, dir, "config.yaml", `
trader:
  bridge: USDT
  supported_coin_file: supported_coin_list
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.CoinList{"BTC", "ETH"}, cfg.Settings().SupportedCoins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CURRENT_COIN_SYMBOL", "eth")
	t.Setenv("BINANCE_API_KEY", "k")
	t.Setenv("LOG_LEVEL", "debug")

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
trader:
  bridge: USDT
  supported_coins: [BTC, ETH]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.Coin("ETH"), cfg.Settings().CurrentCoin)
	assert.Equal(t, "k", cfg.API.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing bridge": `
trader:
  supported_coins: [BTC]
`,
		"no coins": `
trader:
  bridge: USDT
`,
		"bridge in list": `
trader:
  bridge: USDT
  supported_coins: [BTC, usdt]
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := config.Load(path)
			require.Error(t, err)

			var cfgErr *domain.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
