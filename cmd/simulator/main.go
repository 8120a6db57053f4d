package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sashreek007/MarketDynamicsSim/internal/app"
	"github.com/Sashreek007/MarketDynamicsSim/internal/control"
	"github.com/Sashreek007/MarketDynamicsSim/internal/infra"
	"github.com/Sashreek007/MarketDynamicsSim/internal/storage"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file (defaults used when empty)")
		days        = flag.Float64("days", 0, "simulation horizon in days (overrides config)")
		seed        = flag.Int64("seed", 0, "master random seed (overrides config)")
		dbPath      = flag.String("db", "", "SQLite output path (overrides config, '-' disables persistence)")
		controlAddr = flag.String("control", "", "control websocket listen address (overrides config)")
		verbosity   = flag.Int("v", -1, "verbosity level (overrides config)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if *days > 0 {
		cfg.Simulation.HorizonDays = *days
	}
	if *seed != 0 {
		cfg.Simulation.RandomSeed = *seed
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *controlAddr != "" {
		cfg.Control.ListenAddr = *controlAddr
	}
	if *verbosity >= 0 {
		cfg.Simulation.Verbosity = *verbosity
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: logLevel(cfg.Simulation.Verbosity)})))

	var sink storage.Sink = storage.NopSink{}
	var store *storage.SimStore
	if cfg.Database.Path != "" && cfg.Database.Path != "-" {
		store, err = storage.NewSimStore(cfg.Database.Path)
		if err != nil {
			slog.Error("failed to open store", slog.Any("error", err))
			os.Exit(1)
		}
		defer store.Close()
		sink = store
	}

	sim, err := app.New(cfg, sink)
	if err != nil {
		slog.Error("failed to build simulation", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Control.ListenAddr != "" {
		go control.NewServer(sim).ListenAndServe(cfg.Control.ListenAddr)
	}

	sim.Run(ctx, cfg.Simulation.HorizonDays)

	printSummary(sim)
	if store != nil {
		if stats, err := store.Summary(); err == nil {
			fmt.Printf("\nrecorded: %d trades, %.0f shares, %d events\n",
				stats.TotalTrades, stats.TotalVolume, stats.TotalEvents)
		}
	}
}

// logLevel maps verbosity to a slog level: 0 warnings only, 1 info, 2 and
// above debug.
func logLevel(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func loadConfig(path string) (*infra.Config, error) {
	if path == "" {
		return infra.DefaultConfig(), nil
	}
	return infra.LoadConfig(path)
}

func printSummary(sim *app.Simulation) {
	fmt.Println("\n=== final standings ===")
	for _, s := range sim.Summary() {
		fmt.Printf("%-14s %-12s capital %12.2f  final %14.2f  realized %12.2f  return %7.2f%%  trades %d\n",
			s.Name, s.Strategy, s.InitialCapital, s.FinalValue, s.RealizedPnL, s.TotalReturn*100, s.Trades)
	}
}
