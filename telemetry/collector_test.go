package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/gridlife/systems"
)

func TestCollector_WindowAccumulation(t *testing.T) {
	c := NewCollector(10)

	c.OnBirth(1, 0, 0, 20)
	c.OnBirth(2, 1, 1, 20)
	c.OnDeath(3, 2, 2, 5, "starved")
	c.RecordMateChoice(systems.MateChoice{Similarity: 0.4, Penalty: 0.9})
	c.RecordMateChoice(systems.MateChoice{Similarity: 0.6, Penalty: 0.7})
	c.RecordReproductionBlocked("cooldown")
	c.RecordReproductionBlocked("cooldown")
	c.RecordReproductionBlocked("probability")

	ws := c.Flush(10, WorldSample{Population: 42, FieldEnergy: 100, Scarcity: 0.1})

	if ws.Births != 2 || ws.Deaths != 1 {
		t.Errorf("births/deaths = %d/%d, want 2/1", ws.Births, ws.Deaths)
	}
	if ws.MateChoices != 2 {
		t.Errorf("mate choices = %d, want 2", ws.MateChoices)
	}
	if math.Abs(ws.MeanMateSimilarity-0.5) > 1e-9 {
		t.Errorf("mean similarity = %f, want 0.5", ws.MeanMateSimilarity)
	}
	if math.Abs(ws.MeanPenalty-0.8) > 1e-9 {
		t.Errorf("mean penalty = %f, want 0.8", ws.MeanPenalty)
	}
	if ws.BlockedCooldown != 2 || ws.BlockedProbability != 1 {
		t.Errorf("blocked cooldown/probability = %d/%d, want 2/1", ws.BlockedCooldown, ws.BlockedProbability)
	}
	if ws.Population != 42 {
		t.Errorf("population = %d, want 42", ws.Population)
	}
}

func TestCollector_FlushResetsCounters(t *testing.T) {
	c := NewCollector(10)
	c.OnBirth(1, 0, 0, 20)
	c.RecordReproductionBlocked("cooldown")
	c.Flush(10, WorldSample{})

	ws := c.Flush(20, WorldSample{})
	if ws.Births != 0 || ws.BlockedCooldown != 0 {
		t.Error("counters survived a flush")
	}
	if ws.WindowStart != 10 || ws.WindowEnd != 20 {
		t.Errorf("window = [%d,%d], want [10,20]", ws.WindowStart, ws.WindowEnd)
	}
}

func TestCollector_ShouldFlushCadence(t *testing.T) {
	c := NewCollector(5)
	for tick := 1; tick < 5; tick++ {
		if c.ShouldFlush(tick) {
			t.Errorf("flush requested early at tick %d", tick)
		}
	}
	if !c.ShouldFlush(5) {
		t.Error("flush not requested at window boundary")
	}
	c.Flush(5, WorldSample{})
	if c.ShouldFlush(9) {
		t.Error("flush requested early in the second window")
	}
	if !c.ShouldFlush(10) {
		t.Error("flush not requested at the second boundary")
	}
}

// ---------- Diversity pressure ----------

func TestDiversityPressure_HighForConvergedPopulation(t *testing.T) {
	c := NewCollector(10)
	// Everyone nearly identical.
	c.SetDiversitySamples([]float64{0.96, 0.97, 0.95, 0.96, 0.97})
	if c.DiversityPressure() <= 0.5 {
		t.Errorf("pressure = %f for a converged population, want high", c.DiversityPressure())
	}
}

func TestDiversityPressure_LowForDiversePopulation(t *testing.T) {
	c := NewCollector(10)
	c.SetDiversitySamples([]float64{0.1, 0.3, 0.2, 0.4, 0.25})
	if c.DiversityPressure() != 0 {
		t.Errorf("pressure = %f for a diverse population, want 0", c.DiversityPressure())
	}
}

func TestDiversityPressure_ZeroWithoutSamples(t *testing.T) {
	c := NewCollector(10)
	c.SetDiversitySamples([]float64{0.9, 0.9})
	c.SetDiversitySamples(nil)
	if c.DiversityPressure() != 0 {
		t.Errorf("pressure = %f with no samples, want 0", c.DiversityPressure())
	}
}

func TestDiversityPressure_InRange(t *testing.T) {
	c := NewCollector(10)
	for _, samples := range [][]float64{
		{1, 1, 1, 1},
		{0, 0, 0, 0},
		{0.55, 0.55},
		{0.9, 0.1, 0.9, 0.1},
	} {
		c.SetDiversitySamples(samples)
		p := c.DiversityPressure()
		if p < 0 || p > 1 {
			t.Errorf("pressure = %f for samples %v, want [0,1]", p, samples)
		}
	}
}
