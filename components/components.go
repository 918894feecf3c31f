// Package components defines ECS components for the simulation.
package components

import (
	"github.com/pthm-cable/gridlife/genome"
)

// Position is an organism's tile coordinates. The grid occupant slot is
// canonical; this is a cache resynchronized by the orchestrator when the two
// disagree.
type Position struct {
	Row, Col int
}

// Vitals holds an organism's core life state.
type Vitals struct {
	Energy        float64
	Age           int
	Lifespan      float64
	EventPressure float64 // Last-event pressure, decays back toward zero
	Dead          bool
}

// Breeding holds reproduction bookkeeping.
type Breeding struct {
	Cooldown int
}

// Phenotype caches the movement and interaction traits decoded from the
// genome at birth, so hot paths avoid repeated trait lookups.
type Phenotype struct {
	SightRadius int
	MoveChance  float64
	Reach       float64
	AllyThresh  float64
	EnemyThresh float64
	Risk        float64
	Metabolism  float64
}

// Genotype ties an organism to its genome.
type Genotype struct {
	ID uint64
	G  *genome.Genome
}
