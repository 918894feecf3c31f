package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one tick window.
type WindowStats struct {
	WindowStart int `csv:"-"`
	WindowEnd   int `csv:"window_end"`

	// Population at window end
	Population int `csv:"population"`

	// Events during the window
	Births      int `csv:"births"`
	Deaths      int `csv:"deaths"`
	MateChoices int `csv:"mate_choices"`

	// Reproduction block reasons
	BlockedPool        int `csv:"blocked_pool"`
	BlockedReach       int `csv:"blocked_reach"`
	BlockedCooldown    int `csv:"blocked_cooldown"`
	BlockedZone        int `csv:"blocked_zone"`
	BlockedEnergy      int `csv:"blocked_energy"`
	BlockedProbability int `csv:"blocked_probability"`
	BlockedSpawnTile   int `csv:"blocked_spawn_tile"`

	// Mate choice quality
	MeanMateSimilarity float64 `csv:"mate_similarity_mean"`
	MeanPenalty        float64 `csv:"penalty_mean"`
	DiversityPressure  float64 `csv:"diversity_pressure"`

	// Energy pools (for conservation checks across windows)
	FieldEnergy  float64 `csv:"field_energy"`
	PooledEnergy float64 `csv:"pooled_energy"`

	// Organism energy distribution at window end
	OrgEnergyMean float64 `csv:"org_energy_mean"`
	OrgEnergyP10  float64 `csv:"org_energy_p10"`
	OrgEnergyP50  float64 `csv:"org_energy_p50"`
	OrgEnergyP90  float64 `csv:"org_energy_p90"`

	Scarcity     float64 `csv:"scarcity"`
	ActiveEvents int     `csv:"active_events"`
}

// energyQuantiles returns the mean and the 10th/50th/90th percentiles of the
// given values. Returns zeros for an empty slice.
func energyQuantiles(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", s.WindowEnd),
		slog.Int("population", s.Population),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("mate_choices", s.MateChoices),
		slog.Int("blocked_probability", s.BlockedProbability),
		slog.Int("blocked_energy", s.BlockedEnergy),
		slog.Float64("mate_similarity_mean", s.MeanMateSimilarity),
		slog.Float64("penalty_mean", s.MeanPenalty),
		slog.Float64("diversity_pressure", s.DiversityPressure),
		slog.Float64("field_energy", s.FieldEnergy),
		slog.Float64("pooled_energy", s.PooledEnergy),
		slog.Float64("org_energy_mean", s.OrgEnergyMean),
		slog.Float64("scarcity", s.Scarcity),
		slog.Int("active_events", s.ActiveEvents),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
