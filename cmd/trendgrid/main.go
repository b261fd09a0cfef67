package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"trendgrid/internal/bootstrap"
	"trendgrid/internal/config"
	"trendgrid/internal/exchange"
	"trendgrid/internal/infrastructure/health"
	"trendgrid/internal/infrastructure/metrics"
	"trendgrid/internal/trading/supervisor"
	apperrors "trendgrid/pkg/errors"
	"trendgrid/pkg/logging"
	"trendgrid/pkg/telemetry"
)

var version = "dev"

var (
	configFile  = flag.String("config", "", "Path to configuration file (default $TGS_CONFIG or "+config.DefaultConfigPath+")")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("trendgrid", version)
		return
	}

	os.Exit(run())
}

func run() int {
	path := config.ResolvePath(*configFile)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", path, err)
		return 2
	}

	// Initialize OTel before the logger so the zap bridge sees the real provider
	var otelOut io.Writer = io.Discard
	if strings.EqualFold(cfg.Log.Level, "DEBUG") {
		otelOut = os.Stdout
	}
	tel, err := telemetry.Setup("trendgrid", otelOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}()

	logger, err := logging.New(logOptions(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Close() }()

	logger.Info("Starting trendgrid", "version", version, "config", path)

	clients, err := exchange.NewClients(cfg.Market, logger)
	if err != nil {
		logger.Error("Failed to initialize exchange", "error", err)
		return 1
	}

	coins := cfg.Coin.Enabled()
	logger.Info("Configuration loaded",
		"exchange", clients.Name,
		"coins", coinNames(coins),
		"cooldown", cfg.Runner.Cooldown,
		"kline_interval", cfg.Runner.KlineInterval,
	)

	hm := health.NewHealthManager(logger)
	sup := supervisor.New(clients.Market, clients.Trade, coins, cfg.Runner, logger,
		supervisor.WithHealth(hm),
		supervisor.WithReadyHook(func() { hm.SetReady(true) }),
	)

	var aux []bootstrap.Runner
	if cfg.Telemetry.HealthPort > 0 {
		aux = append(aux, health.NewServer(cfg.Telemetry.HealthPort, hm, logger))
	}
	if cfg.Telemetry.EnableMetrics {
		aux = append(aux, metrics.NewServer(cfg.Telemetry.MetricsPort, logger))
	}

	app := bootstrap.NewApp(cfg, logger)
	if err := app.Run(sup, aux...); err != nil {
		if errors.Is(err, apperrors.ErrConnectivity) {
			logger.Error("Exchange unreachable, exiting", "error", err)
		}
		return 1
	}
	return 0
}

func logOptions(c config.LogConfig) logging.Options {
	opts := logging.Options{
		Level:      c.Level,
		Rotation:   logging.Rotation(c.Rotation),
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
	if c.EnableLogFile {
		opts.FilePath = c.Path
	}
	return opts
}

func coinNames(coins []config.CoinEntry) []string {
	names := make([]string, 0, len(coins))
	for _, c := range coins {
		names = append(names, c.Symbol.String())
	}
	return names
}
