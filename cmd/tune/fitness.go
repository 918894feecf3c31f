package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/sim"
	"github.com/pthm-cable/gridlife/telemetry"
)

// Minimum viable population: below this for collapseGraceTicks consecutive
// ticks counts as ecosystem collapse even though scarcity seeding keeps a
// trickle of organisms alive.
const (
	minViablePop       = 5
	collapseGraceTicks = 500
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int
	windowStats   []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks scaled by a window-quality bonus, so
// longer, more stable runs score lower.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel; each sim is fully independent.
	type seedResult struct {
		fitness float64
		quality float64
	}
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(cfg, s)
			quality := fe.computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness: -float64(result.survivalTicks) * (1 + 0.3*quality),
				quality: quality,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}
	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation runs one seeded headless simulation until collapse or the
// tick cap.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) runResult {
	collector := telemetry.NewCollector(cfg.Telemetry.WindowTicks)
	s := sim.New(sim.Options{
		Config: cfg,
		Seed:   seed,
		Logger: slog.New(slog.DiscardHandler),
		Stats:  collector,
	})

	var windows []telemetry.WindowStats
	belowSince := -1
	for tick := 1; tick <= fe.maxTicks; tick++ {
		snap := s.Tick(sim.TickOptions{})

		if ws := s.LastWindow(); ws != nil && ws.WindowEnd == snap.Tick {
			windows = append(windows, *ws)
		}

		if snap.Population < minViablePop {
			if belowSince < 0 {
				belowSince = tick
			}
			if tick-belowSince >= collapseGraceTicks {
				return runResult{survivalTicks: tick, windowStats: windows}
			}
		} else {
			belowSince = -1
		}
	}
	return runResult{survivalTicks: fe.maxTicks, windowStats: windows}
}

// computeQuality scores a run's window history in [0,1]: stable population
// and low standing diversity pressure are both rewarded.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) < 2 {
		return 0
	}
	pops := make([]float64, len(windows))
	pressure := 0.0
	for i, w := range windows {
		pops[i] = float64(w.Population)
		pressure += w.DiversityPressure
	}
	pressure /= float64(len(windows))

	mean, std := stat.MeanStdDev(pops, nil)
	if mean <= 0 {
		return 0
	}
	stability := 1 - math.Min(1, std/mean)
	return 0.7*stability + 0.3*(1-pressure)
}

// copyConfig makes a mutable copy of the base config. The tuned knobs do
// not touch grid geometry, so the derived values stay valid.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cp := *fe.baseConfig
	return &cp
}
