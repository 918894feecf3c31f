package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/components"
	"github.com/pthm-cable/gridlife/config"
)

// Intent is a pre-built combat or cooperation request between two organisms.
type Intent struct {
	Actor, Target       ecs.Entity
	ActorPos, TargetPos Cell
	Hostile             bool
	Strength            float64 // [0,1], scales the transfer
}

// InteractionOutcome reports the energy side effects of a resolved intent.
type InteractionOutcome struct {
	Transferred float64 // Energy moved from target to actor (or actor to target when cooperative)
	ActorCost   float64 // Flat energy the actor spent
	TargetDied  bool
}

// InteractionResolver resolves combat/cooperation intents. The engine only
// consumes this interface; the default implementation below is a plain
// energy-transfer model.
type InteractionResolver interface {
	Resolve(intent Intent, actor, target *components.Vitals) InteractionOutcome
}

// EnergyTransferResolver is the default InteractionResolver: hostile intents
// move a fraction of the defender's energy to the attacker at a flat cost;
// cooperative intents move a share of the energy gap from the richer to the
// poorer side.
type EnergyTransferResolver struct {
	cfg config.InteractionConfig
}

// NewEnergyTransferResolver creates the default resolver.
func NewEnergyTransferResolver(cfg config.InteractionConfig) *EnergyTransferResolver {
	return &EnergyTransferResolver{cfg: cfg}
}

// Resolve applies the intent to both vitals and reports what moved.
func (r *EnergyTransferResolver) Resolve(intent Intent, actor, target *components.Vitals) InteractionOutcome {
	if actor == nil || target == nil || actor.Dead || target.Dead {
		return InteractionOutcome{}
	}
	s := clamp01(intent.Strength)

	if intent.Hostile {
		take := target.Energy * r.cfg.AttackFraction * s
		cost := math.Min(r.cfg.AttackCost, actor.Energy)
		target.Energy -= take
		actor.Energy += take - cost
		out := InteractionOutcome{Transferred: take, ActorCost: cost}
		if target.Energy <= 0 {
			target.Energy = 0
			out.TargetDied = true
		}
		return out
	}

	// Cooperation: richer side shares toward the poorer.
	gap := actor.Energy - target.Energy
	share := math.Abs(gap) * r.cfg.CoopFraction * s
	if gap > 0 {
		actor.Energy -= share
		target.Energy += share
	} else {
		target.Energy -= share
		actor.Energy += share
	}
	return InteractionOutcome{Transferred: share}
}
