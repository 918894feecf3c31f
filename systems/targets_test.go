package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/genome"
	"github.com/pthm-cable/gridlife/grid"
)

// uniformGenome builds a genome with every gene at v.
func uniformGenome(v float64) *genome.Genome {
	g := genome.New()
	for i := genome.Trait(0); i < genome.TraitCount; i++ {
		g.Set(i, v)
	}
	return g
}

// targetWorld places entities with genomes on a grid and returns a lookup
// over them.
func targetWorld(g *grid.Grid, placements map[[2]int]*genome.Genome) (map[ecs.Entity]*genome.Genome, OrganismLookup) {
	es := newEntities(len(placements))
	byEntity := make(map[ecs.Entity]*genome.Genome, len(placements))
	i := 0
	for cell, gen := range placements {
		e := es[i]
		i++
		g.Place(e, cell[0], cell[1])
		byEntity[e] = gen
	}
	nextID := uint64(1)
	ids := make(map[ecs.Entity]uint64)
	lookup := func(e ecs.Entity) (uint64, *genome.Genome, bool) {
		gen, ok := byEntity[e]
		if !ok {
			return 0, nil, false
		}
		id, seen := ids[e]
		if !seen {
			id = nextID
			nextID++
			ids[e] = id
		}
		return id, gen, true
	}
	return byEntity, lookup
}

// zeroBias disables the stochastic enemy reclassification so tests are
// purely threshold-driven.
func zeroBias() config.TargetsConfig {
	return config.TargetsConfig{MinEnemyBias: 0, MaxEnemyBias: 0}
}

// ---------- Classification ----------

func TestResolve_ClassifiesByThresholds(t *testing.T) {
	g := grid.New(7, 7)
	d := NewDensityField(g, 1)
	d.Sync(true)

	focalGen := uniformGenome(0.5)
	_, lookup := targetWorld(g, map[[2]int]*genome.Genome{
		{3, 4}: uniformGenome(0.5),  // identical: society
		{3, 2}: uniformGenome(0.3),  // moderately close: mate
		{2, 3}: uniformGenome(0.05), // distant: enemy
	})

	tr := NewTargetResolver(zeroBias(), rand.New(rand.NewSource(31)))
	set := tr.Resolve(g, d, ecs.Entity{}, 100, focalGen, 3, 3, 2, 0.9, 0.6, 0.5, lookup)

	if len(set.Society) != 1 {
		t.Errorf("society = %d, want 1", len(set.Society))
	}
	if len(set.Mates) != 1 {
		t.Errorf("mates = %d, want 1", len(set.Mates))
	}
	if len(set.Enemies) != 1 {
		t.Errorf("enemies = %d, want 1", len(set.Enemies))
	}
}

func TestResolve_SightRadiusBounds(t *testing.T) {
	g := grid.New(9, 9)
	d := NewDensityField(g, 1)
	d.Sync(true)

	_, lookup := targetWorld(g, map[[2]int]*genome.Genome{
		{4, 6}: uniformGenome(0.5), // inside radius 2
		{4, 8}: uniformGenome(0.5), // outside radius 2
	})

	tr := NewTargetResolver(zeroBias(), rand.New(rand.NewSource(32)))
	set := tr.Resolve(g, d, ecs.Entity{}, 100, uniformGenome(0.5), 4, 4, 2, 0.9, 0.1, 0.5, lookup)

	total := len(set.Mates) + len(set.Enemies) + len(set.Society)
	if total != 1 {
		t.Errorf("resolved %d targets, want only the one inside the radius", total)
	}
}

func TestResolve_SkipsUnresolvableOccupants(t *testing.T) {
	g := grid.New(5, 5)
	d := NewDensityField(g, 1)
	d.Sync(true)

	ghost := newEntities(1)[0]
	g.Place(ghost, 2, 3)
	lookup := func(e ecs.Entity) (uint64, *genome.Genome, bool) {
		return 0, nil, false
	}

	tr := NewTargetResolver(zeroBias(), rand.New(rand.NewSource(33)))
	set := tr.Resolve(g, d, ecs.Entity{}, 100, uniformGenome(0.5), 2, 2, 2, 0.9, 0.1, 0.5, lookup)
	if n := len(set.Mates) + len(set.Enemies) + len(set.Society); n != 0 {
		t.Errorf("resolved %d targets from unresolvable occupants", n)
	}
}

// ---------- Similarity memoization ----------

func TestSimilarity_MemoizedPerTick(t *testing.T) {
	tr := NewTargetResolver(zeroBias(), rand.New(rand.NewSource(34)))
	a := uniformGenome(0.2)
	b := uniformGenome(0.8)

	s1 := tr.Similarity(1, 2, a, b)
	if tr.CachedPairs() != 1 {
		t.Fatalf("cache holds %d pairs, want 1", tr.CachedPairs())
	}
	// Reversed order must hit the same unordered-pair entry.
	s2 := tr.Similarity(2, 1, b, a)
	if tr.CachedPairs() != 1 {
		t.Errorf("reversed lookup added a new entry: %d pairs", tr.CachedPairs())
	}
	if s1 != s2 {
		t.Errorf("memoized similarity differs by order: %f vs %f", s1, s2)
	}

	tr.ResetTick()
	if tr.CachedPairs() != 0 {
		t.Errorf("cache not cleared on tick reset: %d pairs", tr.CachedPairs())
	}
}
