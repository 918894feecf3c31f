package telemetry

import (
	"math"
	"testing"
)

func TestEnergyQuantiles(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	mean, p10, p50, p90 := energyQuantiles(values)

	if math.Abs(mean-55) > 1e-9 {
		t.Errorf("mean = %f, want 55", mean)
	}
	if p10 > p50 || p50 > p90 {
		t.Errorf("quantiles out of order: p10=%f p50=%f p90=%f", p10, p50, p90)
	}
	if p10 < 10 || p90 > 100 {
		t.Errorf("quantiles escape the sample range: p10=%f p90=%f", p10, p90)
	}
}

func TestEnergyQuantiles_Empty(t *testing.T) {
	mean, p10, p50, p90 := energyQuantiles(nil)
	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty input should produce zeros")
	}
}

func TestEnergyQuantiles_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	energyQuantiles(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}

func TestWindowStats_LogValueGroups(t *testing.T) {
	ws := WindowStats{WindowEnd: 120, Population: 33}
	v := ws.LogValue()
	if v.Kind().String() != "Group" {
		t.Errorf("LogValue kind = %s, want Group", v.Kind())
	}
}
