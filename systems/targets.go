package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/genome"
	"github.com/pthm-cable/gridlife/grid"
)

// Target is one classified neighbor.
type Target struct {
	Cell       Cell
	Entity     ecs.Entity
	Similarity float64
}

// TargetSet is the result of a sight-radius scan.
type TargetSet struct {
	Mates   []Target
	Enemies []Target
	Society []Target
}

// OrganismLookup resolves an occupant entity to its genome identity. The
// second return is false for entities that should be ignored (dead, being
// removed).
type OrganismLookup func(e ecs.Entity) (id uint64, g *genome.Genome, ok bool)

// pairKey identifies an unordered organism pair.
type pairKey struct {
	lo, hi uint64
}

// TargetResolver scans the sight window around an organism and classifies
// occupied tiles into mates, enemies, and society. Pairwise similarity is
// computed once per unordered pair per tick and memoized.
type TargetResolver struct {
	cfg      config.TargetsConfig
	rng      *rand.Rand
	simCache map[pairKey]float64
}

// NewTargetResolver creates a resolver. The RNG drives the hostility draw
// and must be the simulation's seeded stream for determinism.
func NewTargetResolver(cfg config.TargetsConfig, rng *rand.Rand) *TargetResolver {
	return &TargetResolver{
		cfg:      cfg,
		rng:      rng,
		simCache: make(map[pairKey]float64),
	}
}

// ResetTick clears the per-tick similarity memo.
func (tr *TargetResolver) ResetTick() {
	clear(tr.simCache)
}

// Similarity returns the memoized genetic similarity for a pair. Symmetric:
// querying (a,b) and (b,a) hits the same cache slot.
func (tr *TargetResolver) Similarity(idA, idB uint64, ga, gb *genome.Genome) float64 {
	key := pairKey{lo: idA, hi: idB}
	if idB < idA {
		key = pairKey{lo: idB, hi: idA}
	}
	if v, ok := tr.simCache[key]; ok {
		return v
	}
	v := genome.Similarity(ga, gb)
	tr.simCache[key] = v
	return v
}

// CachedPairs returns the number of memoized pairs. Test hook.
func (tr *TargetResolver) CachedPairs() int { return len(tr.simCache) }

// Resolve scans the (2S+1)² window around the focal organism, excluding
// self, and classifies each occupied tile:
//
//   - society when similarity >= the focal ally threshold,
//   - enemy when similarity <= the focal enemy threshold, or on a random
//     draw under the density-scaled hostility bias,
//   - mate otherwise.
func (tr *TargetResolver) Resolve(
	g *grid.Grid,
	density *DensityField,
	focal ecs.Entity,
	focalID uint64,
	focalGenome *genome.Genome,
	row, col, sight int,
	allyThresh, enemyThresh, risk float64,
	lookup OrganismLookup,
) TargetSet {
	var set TargetSet
	if sight < 1 {
		sight = 1
	}

	effDensity := density.At(row, col)
	bias := lerp(tr.cfg.MinEnemyBias, tr.cfg.MaxEnemyBias, effDensity) * (0.4 + 0.8*clamp01(risk))
	if bias < 0 {
		bias = 0
	}

	for r := row - sight; r <= row+sight; r++ {
		for c := col - sight; c <= col+sight; c++ {
			if r == row && c == col {
				continue
			}
			occ := g.Occupant(r, c)
			if occ == emptyEntity || occ == focal {
				continue
			}
			id, og, ok := lookup(occ)
			if !ok {
				continue
			}
			sim := tr.Similarity(focalID, id, focalGenome, og)
			t := Target{Cell: Cell{Row: r, Col: c}, Entity: occ, Similarity: sim}

			switch {
			case sim >= allyThresh:
				set.Society = append(set.Society, t)
			case sim <= enemyThresh || tr.rng.Float64() < bias:
				set.Enemies = append(set.Enemies, t)
			default:
				set.Mates = append(set.Mates, t)
			}
		}
	}
	return set
}
