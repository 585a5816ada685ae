package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/adapters/notify"
	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scout cycle and exit")
	report := flag.Bool("report", false, "print trades and holdings from storage and exit")
	since := flag.Duration("since", 7*24*time.Hour, "report window")
	paperMode := flag.Bool("paper", false, "simulate orders with virtual balances (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *paperMode {
		cfg.Paper.Enabled = true
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	settings := cfg.Settings()
	slog.Info("rotabot starting",
		"config", *configPath,
		"strategy", settings.Strategy,
		"bridge", settings.Bridge,
		"coins", len(settings.SupportedCoins),
		"interval", cfg.ScoutInterval(),
		"paper", cfg.Paper.Enabled,
		"once", *once,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		if err := runReport(ctx, cfg, store, notifier, *since, nil); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, store, notifier, *once); err != nil {
		slog.Error("trader exited with error", "err", err)
		store.Close()
		os.Exit(1)
	}

	slog.Info("rotabot stopped cleanly")
}

// setupLogger configura slog. Con log.file también escribe a un archivo
// rotado por lumberjack. Devuelve la función que lo cierra.
func setupLogger(cfg config.LogConfig) func() {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // días
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, fileLogger)
		closeFn = func() { fileLogger.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}
