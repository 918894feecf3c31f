package systems

import (
	"sort"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/grid"
)

// ScarcityController derives the population-deficit signal and picks seeding
// sites when the population falls below the grid-area minimum. The signal
// cross-cuts the energy field's seeding threshold, the reproduction policy's
// scarcity bonus, and the decay redistributor's spawn-from-pool gate.
type ScarcityController struct {
	cfg    config.PopulationConfig
	minPop int
}

// NewScarcityController creates a controller for the configured grid area.
func NewScarcityController(cfg *config.Config) *ScarcityController {
	return &ScarcityController{
		cfg:    cfg.Population,
		minPop: cfg.Derived.MinPopulation,
	}
}

// MinPopulation returns the area-derived minimum population.
func (s *ScarcityController) MinPopulation() int { return s.minPop }

// Signal returns the scarcity signal in [0,1]: zero at or above the minimum
// population, approaching one as the population empties out.
func (s *ScarcityController) Signal(population int) float64 {
	if population >= s.minPop || s.minPop <= 0 {
		return 0
	}
	if population < 0 {
		population = 0
	}
	deficit := float64(s.minPop-population) / float64(s.minPop)
	occupancy := float64(population) / float64(s.minPop)
	return clamp01(deficit * (0.6 + 0.4*(1-occupancy)))
}

// SeedSite is a selected seeding location with its scarcity-scaled spawn
// energy.
type SeedSite struct {
	Cell   Cell
	Energy float64
}

// SeedSites picks up to the configured batch of empty unblocked tiles,
// scored by an energy-normalized blend with inverse local density. Ties
// break on tile order so runs stay deterministic.
func (s *ScarcityController) SeedSites(g *grid.Grid, field *EnergyField, density *DensityField, population int) []SeedSite {
	scarcity := s.Signal(population)
	if scarcity <= 0 {
		return nil
	}

	type scored struct {
		cell  Cell
		score float64
	}
	var candidates []scored
	w := clamp01(s.cfg.SeedScoreEnergyWeight)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if !g.IsOpen(r, c) {
				continue
			}
			energyNorm := field.Available(r, c) / field.Max()
			score := w*energyNorm + (1-w)*(1-density.At(r, c))
			if score > 0 {
				candidates = append(candidates, scored{cell: Cell{Row: r, Col: c}, score: score})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	batch := s.cfg.SeedBatch
	if batch < 1 {
		batch = 1
	}
	if batch > len(candidates) {
		batch = len(candidates)
	}

	sites := make([]SeedSite, 0, batch)
	for _, cand := range candidates[:batch] {
		sites = append(sites, SeedSite{
			Cell:   cand.cell,
			Energy: s.cfg.SeedEnergyBase * (1 + scarcity),
		})
	}
	return sites
}
