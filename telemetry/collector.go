// Package telemetry accumulates simulation events into windowed statistics
// and writes them to CSV.
package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/gridlife/systems"
)

// Collector accumulates events within tick windows and produces
// WindowStats. It is the engine's stats collaborator: births, deaths, mate
// choices, reproduction blocks, and the population diversity pressure all
// flow through here.
type Collector struct {
	windowTicks int
	windowStart int

	births int
	deaths int

	mateChoices int
	simSum      float64
	penaltySum  float64

	blocked map[string]int

	// Diversity pressure, recomputed from sampled pairwise similarities.
	pressure float64
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: windowTicks,
		blocked:     make(map[string]int),
	}
}

// OnBirth records a birth event.
func (c *Collector) OnBirth(id uint64, row, col int, energy float64) {
	c.births++
}

// OnDeath records a death event.
func (c *Collector) OnDeath(id uint64, row, col int, energy float64, cause string) {
	c.deaths++
}

// RecordMateChoice records a committed pairing.
func (c *Collector) RecordMateChoice(rec systems.MateChoice) {
	c.mateChoices++
	c.simSum += rec.Similarity
	c.penaltySum += rec.Penalty
}

// RecordReproductionBlocked records a non-exceptional reproduction failure.
func (c *Collector) RecordReproductionBlocked(reason string) {
	c.blocked[reason]++
}

// SetDiversitySamples recomputes the population diversity pressure from
// sampled pairwise similarities. Pressure rises as the population converges
// genetically: high mean similarity with little spread.
func (c *Collector) SetDiversitySamples(similarities []float64) {
	if len(similarities) == 0 {
		c.pressure = 0
		return
	}
	mean, std := stat.MeanStdDev(similarities, nil)
	if len(similarities) < 2 {
		std = 0
	}
	c.pressure = clamp01((mean - 0.55) * 2.5 * clamp01(1-2*std))
}

// DiversityPressure returns the current population diversity pressure in
// [0,1].
func (c *Collector) DiversityPressure() float64 { return c.pressure }

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(tick int) bool {
	return tick-c.windowStart >= c.windowTicks
}

// WorldSample is the point-in-time data the orchestrator supplies at flush.
type WorldSample struct {
	Population      int
	FieldEnergy     float64
	PooledEnergy    float64
	OrganismEnergy  []float64
	Scarcity        float64
	ActiveEvents    int
}

// Flush produces a WindowStats for the closing window and resets counters.
func (c *Collector) Flush(tick int, sample WorldSample) WindowStats {
	ws := WindowStats{
		WindowStart: c.windowStart,
		WindowEnd:   tick,

		Births:      c.births,
		Deaths:      c.deaths,
		MateChoices: c.mateChoices,

		BlockedPool:        c.blocked["empty pool"],
		BlockedReach:       c.blocked["out of reach"],
		BlockedCooldown:    c.blocked["cooldown"],
		BlockedZone:        c.blocked["outside reproduction zone"] + c.blocked["zone rejected"],
		BlockedEnergy:      c.blocked["energy below threshold"],
		BlockedProbability: c.blocked["probability"],
		BlockedSpawnTile:   c.blocked["no spawn tile"],

		Population:   sample.Population,
		FieldEnergy:  sample.FieldEnergy,
		PooledEnergy: sample.PooledEnergy,
		Scarcity:     sample.Scarcity,
		ActiveEvents: sample.ActiveEvents,

		DiversityPressure: c.pressure,
	}

	if c.mateChoices > 0 {
		ws.MeanMateSimilarity = c.simSum / float64(c.mateChoices)
		ws.MeanPenalty = c.penaltySum / float64(c.mateChoices)
	}

	ws.OrgEnergyMean, ws.OrgEnergyP10, ws.OrgEnergyP50, ws.OrgEnergyP90 = energyQuantiles(sample.OrganismEnergy)

	c.windowStart = tick
	c.births = 0
	c.deaths = 0
	c.mateChoices = 0
	c.simSum = 0
	c.penaltySum = 0
	clear(c.blocked)

	return ws
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
