package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/sim"
	"github.com/pthm-cable/gridlife/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 10000, "Stop after N ticks (0 = unlimited)")
	logEvery := flag.Int("log-every", 0, "Log a snapshot summary every N ticks (0 = windows only)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var out *telemetry.OutputManager
	if *outputDir != "" {
		var err error
		out, err = telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}
		defer out.Close()

		if err := out.WriteConfig(cfg); err != nil {
			slog.Error("failed to snapshot config", "error", err)
			os.Exit(1)
		}
	}

	collector := telemetry.NewCollector(cfg.Telemetry.WindowTicks)
	s := sim.New(sim.Options{
		Config: cfg,
		Seed:   rngSeed,
		Logger: logger,
		Stats:  collector,
	})

	slog.Info("starting simulation",
		"seed", rngSeed,
		"rows", cfg.Grid.Rows,
		"cols", cfg.Grid.Cols,
		"population", s.Population(),
		"max_ticks", *maxTicks,
	)

	for {
		snap := s.Tick(sim.TickOptions{})

		if *logEvery > 0 && snap.Tick%*logEvery == 0 {
			slog.Info("tick",
				"tick", snap.Tick,
				"population", snap.Population,
				"total_energy", snap.TotalEnergy,
				"max_fitness", snap.MaxFitness,
				"scarcity", snap.Scarcity,
			)
		}
		if out != nil {
			if ws := s.LastWindow(); ws != nil && ws.WindowEnd == snap.Tick {
				if err := out.WriteTelemetry(*ws); err != nil {
					slog.Error("failed to write stats row", "error", err)
				}
			}
		}

		if *maxTicks > 0 && snap.Tick >= *maxTicks {
			slog.Info("max ticks reached", "tick", snap.Tick)
			return
		}
	}
}
