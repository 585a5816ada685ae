package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// Config es la configuración completa del trader.
type Config struct {
	Trader  TraderConfig  `yaml:"trader"`
	API     APIConfig     `yaml:"api"`
	Paper   PaperConfig   `yaml:"paper"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TraderConfig controla las estrategias de rotación.
type TraderConfig struct {
	Bridge            string   `yaml:"bridge"`
	SupportedCoins    []string `yaml:"supported_coins"`
	SupportedCoinFile string   `yaml:"supported_coin_file"` // un símbolo por línea, se usa si supported_coins está vacío
	CurrentCoin       string   `yaml:"current_coin"`        // vacío = elección aleatoria + compra inicial
	Strategy          string   `yaml:"strategy"`            // default | parallel_transactions

	ScoutSleepSeconds      int     `yaml:"scout_sleep_seconds"`
	ScoutMultiplier        float64 `yaml:"scout_multiplier"`
	ScoutMargin            float64 `yaml:"scout_margin"` // porcentaje, solo con use_margin
	UseMargin              bool    `yaml:"use_margin"`
	ScoutHistoryPruneHours float64 `yaml:"scout_history_prune_hours"`

	SplitFraction               float64 `yaml:"split_fraction"`
	SignificantBalanceThreshold float64 `yaml:"significant_balance_threshold"` // en bridge
	MinBalanceForScouting       float64 `yaml:"min_balance_for_scouting"`      // en bridge
}

// APIConfig contiene los endpoints y credenciales del exchange.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	StreamURL string `yaml:"stream_url"`
	Stream    bool   `yaml:"stream"` // mantener precios frescos con el stream websocket
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// PaperConfig activa la ejecución simulada contra precios reales.
type PaperConfig struct {
	Enabled       bool    `yaml:"enabled"`
	InitialBridge float64 `yaml:"initial_bridge"`
	FeeRate       float64 `yaml:"fee_rate"`
	MinNotional   float64 `yaml:"min_notional"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla formato y nivel de logging, y el archivo rotado opcional.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // vacío = solo stdout
}

// Settings es la vista inmutable de TraderConfig que consumen las estrategias.
type Settings struct {
	Bridge                      domain.Coin
	SupportedCoins              domain.CoinList
	CurrentCoin                 domain.Coin
	Strategy                    string
	ScoutMultiplier             float64
	ScoutMargin                 float64
	UseMargin                   bool
	SplitFraction               float64
	SignificantBalanceThreshold float64
	MinBalanceForScouting       float64
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if len(cfg.Trader.SupportedCoins) == 0 && cfg.Trader.SupportedCoinFile != "" {
		coinFile := cfg.Trader.SupportedCoinFile
		if !filepath.IsAbs(coinFile) {
			coinFile = filepath.Join(filepath.Dir(path), coinFile)
		}
		coins, err := ReadCoinList(coinFile)
		if err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
		cfg.Trader.SupportedCoins = coins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ReadCoinList lee un archivo de monedas soportadas: un símbolo por línea,
// se ignoran líneas vacías y las que empiezan con '#'.
func ReadCoinList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read coin list %q: %w", path, err)
	}
	defer f.Close()

	var coins []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		coins = append(coins, line)
	}
	return coins, sc.Err()
}

// Validate comprueba los invariantes que no dependen de la estrategia.
func (c *Config) Validate() error {
	bridge := domain.NormalizeCoin(c.Trader.Bridge)
	if bridge == "" {
		return &domain.ConfigError{Field: "trader.bridge", Err: errors.New("bridge coin is required")}
	}
	if len(c.Trader.SupportedCoins) == 0 {
		return &domain.ConfigError{Field: "trader.supported_coins", Err: errors.New("at least one supported coin is required")}
	}
	for _, s := range c.Trader.SupportedCoins {
		if domain.NormalizeCoin(s) == bridge {
			return &domain.ConfigError{Field: "trader.supported_coins", Err: fmt.Errorf("bridge %s cannot be a supported coin", bridge)}
		}
	}
	if c.Trader.SplitFraction < 0 {
		return &domain.ConfigError{Field: "trader.split_fraction", Err: domain.ErrInvalidSplitFraction}
	}
	if c.Paper.Enabled && c.Paper.InitialBridge < 0 {
		return &domain.ConfigError{Field: "paper.initial_bridge", Err: errors.New("must not be negative")}
	}
	return nil
}

// ScoutInterval devuelve el periodo de scout como time.Duration.
func (c *Config) ScoutInterval() time.Duration {
	return time.Duration(c.Trader.ScoutSleepSeconds) * time.Second
}

// ScoutHistoryRetention devuelve cuánto se conserva el scout history.
func (c *Config) ScoutHistoryRetention() time.Duration {
	return time.Duration(c.Trader.ScoutHistoryPruneHours * float64(time.Hour))
}

// Settings construye los settings normalizados de las estrategias.
func (c *Config) Settings() Settings {
	coins := make(domain.CoinList, 0, len(c.Trader.SupportedCoins))
	seen := make(map[domain.Coin]bool, len(c.Trader.SupportedCoins))
	for _, s := range c.Trader.SupportedCoins {
		coin := domain.NormalizeCoin(s)
		if coin == "" || seen[coin] {
			continue
		}
		seen[coin] = true
		coins = append(coins, coin)
	}
	return Settings{
		Bridge:                      domain.NormalizeCoin(c.Trader.Bridge),
		SupportedCoins:              coins,
		CurrentCoin:                 domain.NormalizeCoin(c.Trader.CurrentCoin),
		Strategy:                    c.Trader.Strategy,
		ScoutMultiplier:             c.Trader.ScoutMultiplier,
		ScoutMargin:                 c.Trader.ScoutMargin,
		UseMargin:                   c.Trader.UseMargin,
		SplitFraction:               c.Trader.SplitFraction,
		SignificantBalanceThreshold: c.Trader.SignificantBalanceThreshold,
		MinBalanceForScouting:       c.Trader.MinBalanceForScouting,
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET_KEY"); v != "" {
		cfg.API.APISecret = v
	}
	if v := os.Getenv("BRIDGE_SYMBOL"); v != "" {
		cfg.Trader.Bridge = v
	}
	if v := os.Getenv("CURRENT_COIN_SYMBOL"); v != "" {
		cfg.Trader.CurrentCoin = v
	}
	if v := os.Getenv("STRATEGY"); v != "" {
		cfg.Trader.Strategy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults rellena valores obligatorios con defaults razonables.
func setDefaults(cfg *Config) {
	if cfg.Trader.Strategy == "" {
		cfg.Trader.Strategy = "default"
	}
	if cfg.Trader.ScoutSleepSeconds <= 0 {
		cfg.Trader.ScoutSleepSeconds = 5
	}
	if cfg.Trader.ScoutMultiplier <= 0 {
		cfg.Trader.ScoutMultiplier = 5
	}
	if cfg.Trader.ScoutMargin <= 0 {
		cfg.Trader.ScoutMargin = 0.8
	}
	if cfg.Trader.ScoutHistoryPruneHours <= 0 {
		cfg.Trader.ScoutHistoryPruneHours = 1
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.binance.com"
	}
	if cfg.API.StreamURL == "" {
		cfg.API.StreamURL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.Paper.FeeRate <= 0 {
		cfg.Paper.FeeRate = 0.001
	}
	if cfg.Paper.MinNotional <= 0 {
		cfg.Paper.MinNotional = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "rotabot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
