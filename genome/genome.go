// Package genome defines the organism trait provider: a fixed vector of
// normalized genes, named trait accessors with per-trait defaults, a symmetric
// genetic distance, and crossover/mutation driven by a caller-supplied RNG.
package genome

import (
	"math"
	"math/rand"
)

// Trait names a gene slot. Accessors return the per-trait default when a
// genome is shorter than the slot it is asked for, so callers never need to
// know the vector layout.
type Trait int

const (
	ForageRate Trait = iota
	HarvestMin
	HarvestMax
	SightRadius
	AllyThreshold
	EnemyThreshold
	RiskTolerance
	MoveChance
	Reach
	ReproThreshold // Energy gate as fraction of tile cap
	ParentalShare  // Fraction of parent energy invested in offspring
	MutationRate
	MutationRange
	MatePreference // Preferred partner similarity
	DiversityDrive
	KinComfort
	Fertility
	CrowdTolerance
	TrendAffinity
	Longevity
	Metabolism

	TraitCount
)

// traitDefaults are the values returned for unset genes.
var traitDefaults = [TraitCount]float64{
	ForageRate:     0.5,
	HarvestMin:     0.2,
	HarvestMax:     0.6,
	SightRadius:    0.5,
	AllyThreshold:  0.7,
	EnemyThreshold: 0.3,
	RiskTolerance:  0.4,
	MoveChance:     0.6,
	Reach:          0.5,
	ReproThreshold: 0.5,
	ParentalShare:  0.25,
	MutationRate:   0.1,
	MutationRange:  0.15,
	MatePreference: 0.6,
	DiversityDrive: 0.5,
	KinComfort:     0.5,
	Fertility:      0.5,
	CrowdTolerance: 0.5,
	TrendAffinity:  0.5,
	Longevity:      0.5,
	Metabolism:     0.5,
}

// Provider is the read-only trait access surface consumed by the simulation.
// Implementations return normalized values in [0,1].
type Provider interface {
	Trait(t Trait) float64
}

// Genome is a fixed-length vector of normalized genes in [0,1].
type Genome struct {
	genes []float64
}

// New creates a genome with all genes at their trait defaults.
func New() *Genome {
	g := &Genome{genes: make([]float64, TraitCount)}
	for i := range g.genes {
		g.genes[i] = traitDefaults[i]
	}
	return g
}

// NewRandom creates a genome with uniformly random genes.
func NewRandom(rng *rand.Rand) *Genome {
	g := &Genome{genes: make([]float64, TraitCount)}
	for i := range g.genes {
		g.genes[i] = rng.Float64()
	}
	return g
}

// FromGenes creates a genome from raw gene values, clamping each to [0,1].
// Short vectors are allowed; missing slots fall back to trait defaults.
func FromGenes(genes []float64) *Genome {
	g := &Genome{genes: make([]float64, len(genes))}
	for i, v := range genes {
		g.genes[i] = clamp01(v)
	}
	return g
}

// Trait returns the normalized value of the named trait.
func (g *Genome) Trait(t Trait) float64 {
	if g == nil || int(t) >= len(g.genes) || t < 0 {
		if t < 0 || t >= TraitCount {
			return 0
		}
		return traitDefaults[t]
	}
	return g.genes[t]
}

// Set overwrites a single gene, clamped to [0,1]. Intended for tests and
// seeded founder construction.
func (g *Genome) Set(t Trait, v float64) {
	if int(t) < len(g.genes) && t >= 0 {
		g.genes[t] = clamp01(v)
	}
}

// Clone returns a deep copy.
func (g *Genome) Clone() *Genome {
	out := &Genome{genes: make([]float64, len(g.genes))}
	copy(out.genes, g.genes)
	return out
}

// Similarity returns 1 minus the mean absolute gene difference over the
// shared slots, in [0,1]. Symmetric by construction; NaN genes count as
// maximally different.
func Similarity(a, b *Genome) float64 {
	if a == nil || b == nil {
		return 0
	}
	n := len(a.genes)
	if len(b.genes) < n {
		n = len(b.genes)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := math.Abs(a.genes[i] - b.genes[i])
		if math.IsNaN(d) || d > 1 {
			d = 1
		}
		sum += d
	}
	return clamp01(1 - sum/float64(n))
}

// Crossover produces an offspring genome via uniform per-gene selection
// followed by mutation. The mutation rate and range are the parents'
// averages; rng drives every random draw so identical streams reproduce
// identical offspring.
func Crossover(a, b *Genome, rng *rand.Rand) *Genome {
	n := len(a.genes)
	if len(b.genes) > n {
		n = len(b.genes)
	}
	child := &Genome{genes: make([]float64, n)}
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.5 {
			child.genes[i] = a.Trait(Trait(i))
		} else {
			child.genes[i] = b.Trait(Trait(i))
		}
	}

	rate := (a.Trait(MutationRate) + b.Trait(MutationRate)) / 2
	span := (a.Trait(MutationRange) + b.Trait(MutationRange)) / 2
	child.mutate(rate, span, rng)
	return child
}

// mutate jitters each gene with probability rate by up to ±span.
func (g *Genome) mutate(rate, span float64, rng *rand.Rand) {
	for i := range g.genes {
		if rng.Float64() < rate {
			g.genes[i] = clamp01(g.genes[i] + (rng.Float64()*2-1)*span)
		}
	}
}

// Complementarity measures how much two genomes cover each other's
// behavioral gaps: the mean absolute difference across the behavior-shaping
// genes only. High values mean the pair pulls in different directions.
func Complementarity(a, b *Genome) float64 {
	behavior := [...]Trait{RiskTolerance, MoveChance, CrowdTolerance, TrendAffinity, ForageRate}
	var sum float64
	for _, t := range behavior {
		sum += math.Abs(a.Trait(t) - b.Trait(t))
	}
	return clamp01(sum / float64(len(behavior)))
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
