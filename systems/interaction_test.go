package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/gridlife/components"
	"github.com/pthm-cable/gridlife/config"
)

func attackResolver() *EnergyTransferResolver {
	return NewEnergyTransferResolver(config.InteractionConfig{
		AttackFraction: 0.2,
		AttackCost:     1,
		CoopFraction:   0.1,
	})
}

func TestResolve_HostileTransfersEnergy(t *testing.T) {
	r := attackResolver()
	actor := &components.Vitals{Energy: 10}
	target := &components.Vitals{Energy: 50}

	out := r.Resolve(Intent{Hostile: true, Strength: 1}, actor, target)
	if math.Abs(out.Transferred-10) > 1e-9 {
		t.Errorf("transferred %f, want 10", out.Transferred)
	}
	if math.Abs(target.Energy-40) > 1e-9 {
		t.Errorf("target energy %f, want 40", target.Energy)
	}
	if math.Abs(actor.Energy-19) > 1e-9 {
		t.Errorf("actor energy %f, want 19 (gain minus cost)", actor.Energy)
	}
	if out.TargetDied {
		t.Error("target reported dead with energy remaining")
	}
}

func TestResolve_HostileConservesEnergyMinusCost(t *testing.T) {
	r := attackResolver()
	actor := &components.Vitals{Energy: 30}
	target := &components.Vitals{Energy: 25}
	before := actor.Energy + target.Energy

	out := r.Resolve(Intent{Hostile: true, Strength: 0.7}, actor, target)
	after := actor.Energy + target.Energy
	if math.Abs(before-after-out.ActorCost) > 1e-9 {
		t.Errorf("energy delta %f, want attack cost %f", before-after, out.ActorCost)
	}
}

func TestResolve_StrengthScalesTake(t *testing.T) {
	r := attackResolver()
	full := &components.Vitals{Energy: 100}
	half := &components.Vitals{Energy: 100}

	outFull := r.Resolve(Intent{Hostile: true, Strength: 1}, &components.Vitals{Energy: 10}, full)
	outHalf := r.Resolve(Intent{Hostile: true, Strength: 0.5}, &components.Vitals{Energy: 10}, half)
	if outHalf.Transferred >= outFull.Transferred {
		t.Errorf("half strength transfer %f not below full %f", outHalf.Transferred, outFull.Transferred)
	}
}

func TestResolve_CooperationFlowsToPoorer(t *testing.T) {
	r := attackResolver()
	rich := &components.Vitals{Energy: 60}
	poor := &components.Vitals{Energy: 20}

	out := r.Resolve(Intent{Strength: 1}, rich, poor)
	if math.Abs(out.Transferred-4) > 1e-9 {
		t.Errorf("shared %f, want 4 (10%% of the gap)", out.Transferred)
	}
	if rich.Energy >= 60 || poor.Energy <= 20 {
		t.Errorf("share flowed the wrong way: rich %f, poor %f", rich.Energy, poor.Energy)
	}
}

func TestResolve_CooperationSymmetric(t *testing.T) {
	r := attackResolver()
	// Actor poorer than target: energy must still flow toward the actor.
	actor := &components.Vitals{Energy: 20}
	target := &components.Vitals{Energy: 60}

	r.Resolve(Intent{Strength: 1}, actor, target)
	if actor.Energy <= 20 || target.Energy >= 60 {
		t.Errorf("share flowed the wrong way: actor %f, target %f", actor.Energy, target.Energy)
	}
}

func TestResolve_DeadParticipantsNoop(t *testing.T) {
	r := attackResolver()
	actor := &components.Vitals{Energy: 10, Dead: true}
	target := &components.Vitals{Energy: 50}

	out := r.Resolve(Intent{Hostile: true, Strength: 1}, actor, target)
	if out.Transferred != 0 || target.Energy != 50 {
		t.Error("dead actor still transferred energy")
	}
}
