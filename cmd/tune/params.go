// Package main provides CMA-ES search over the diversity and reproduction
// shaping constants.
package main

import (
	"github.com/pthm-cable/gridlife/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters. The
// diversity shaping constants are the main search target; a few
// reproduction and decay knobs round out the space.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Diversity shaping. Defaults mirror defaults.yaml so the
			// search starts from the shipped configuration.
			{Name: "baseline_threshold", Path: "diversity.baseline_threshold", Min: 0.05, Max: 0.5, Default: 0.25},
			{Name: "penalty_exponent", Path: "diversity.penalty_exponent", Min: 0.3, Max: 1.0, Default: 0.6},
			{Name: "penalty_floor", Path: "diversity.penalty_floor", Min: 0.0, Max: 0.4, Default: 0.05},
			{Name: "threshold_smoothing", Path: "diversity.threshold_smoothing", Min: 0.0, Max: 1.0, Default: 0.5},
			{Name: "drive_amplification", Path: "diversity.drive_amplification", Min: 0.0, Max: 2.0, Default: 0.6},
			{Name: "kin_damping", Path: "diversity.kin_damping", Min: 0.0, Max: 1.0, Default: 0.5},
			{Name: "pressure_amplification", Path: "diversity.pressure_amplification", Min: 0.0, Max: 2.0, Default: 0.5},
			{Name: "complementarity_relief", Path: "diversity.complementarity_relief", Min: 0.0, Max: 1.0, Default: 0.35},
			// Reproduction
			{Name: "base_rate", Path: "reproduction.base_rate", Min: 0.05, Max: 0.6, Default: 0.35},
			{Name: "density_weight", Path: "reproduction.density_weight", Min: 0.2, Max: 1.0, Default: 0.55},
			{Name: "cooldown_ticks", Path: "reproduction.cooldown_ticks", Min: 5, Max: 60, Default: 40},
			// Energy and decay
			{Name: "regen_rate", Path: "energy.regen_rate", Min: 0.005, Max: 0.08, Default: 0.035},
			{Name: "release_rate", Path: "decay.release_rate", Min: 0.02, Max: 0.4, Default: 0.12},
			{Name: "upkeep_base", Path: "organism.upkeep_base", Min: 0.1, Max: 1.5, Default: 0.6},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	i := 0
	cfg.Diversity.BaselineThreshold = clamped[i]
	i++
	cfg.Diversity.PenaltyExponent = clamped[i]
	i++
	cfg.Diversity.PenaltyFloor = clamped[i]
	i++
	cfg.Diversity.ThresholdSmoothing = clamped[i]
	i++
	cfg.Diversity.DriveAmplification = clamped[i]
	i++
	cfg.Diversity.KinDamping = clamped[i]
	i++
	cfg.Diversity.PressureAmplification = clamped[i]
	i++
	cfg.Diversity.ComplementarityRelief = clamped[i]
	i++

	cfg.Reproduction.BaseRate = clamped[i]
	i++
	cfg.Reproduction.DensityWeight = clamped[i]
	i++
	cfg.Reproduction.CooldownTicks = int(clamped[i])
	i++

	cfg.Energy.RegenRate = clamped[i]
	i++
	cfg.Decay.ReleaseRate = clamped[i]
	i++
	cfg.Organism.UpkeepBase = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Diversity.BaselineThreshold,
		cfg.Diversity.PenaltyExponent,
		cfg.Diversity.PenaltyFloor,
		cfg.Diversity.ThresholdSmoothing,
		cfg.Diversity.DriveAmplification,
		cfg.Diversity.KinDamping,
		cfg.Diversity.PressureAmplification,
		cfg.Diversity.ComplementarityRelief,
		cfg.Reproduction.BaseRate,
		cfg.Reproduction.DensityWeight,
		float64(cfg.Reproduction.CooldownTicks),
		cfg.Energy.RegenRate,
		cfg.Decay.ReleaseRate,
		cfg.Organism.UpkeepBase,
	}
}
