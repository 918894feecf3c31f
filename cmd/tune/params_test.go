package main

import (
	"testing"

	"github.com/pthm-cable/gridlife/config"
)

// The spec defaults are a copy of the shipped configuration; the search must
// start from the values a plain run would use.
func TestParamVector_DefaultsMatchShippedConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults: %v", err)
	}

	pv := NewParamVector()
	shipped := pv.ExtractFromConfig(cfg)
	defaults := pv.DefaultVector()
	for i, spec := range pv.Specs {
		if defaults[i] != shipped[i] {
			t.Errorf("%s: spec default %v, shipped config %v", spec.Path, defaults[i], shipped[i])
		}
	}
}

func TestParamVector_RoundTripThroughConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults: %v", err)
	}

	pv := NewParamVector()
	pv.ApplyToConfig(cfg, pv.DefaultVector())
	back := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if back[i] != pv.Specs[i].Default {
			t.Errorf("%s: %v after apply/extract, want %v", spec.Path, back[i], pv.Specs[i].Default)
		}
	}
}

func TestParamVector_NormalizeDenormalizeInverse(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	got := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if diff := got[i] - raw[i]; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("%s: round trip %v, want %v", pv.Specs[i].Path, got[i], raw[i])
		}
	}
}
