// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid         GridConfig         `yaml:"grid"`
	Energy       EnergyConfig       `yaml:"energy"`
	Harvest      HarvestConfig      `yaml:"harvest"`
	Density      DensityConfig      `yaml:"density"`
	Targets      TargetsConfig      `yaml:"targets"`
	Organism     OrganismConfig     `yaml:"organism"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Diversity    DiversityConfig    `yaml:"diversity"`
	Decay        DecayConfig        `yaml:"decay"`
	Population   PopulationConfig   `yaml:"population"`
	Events       EventsConfig       `yaml:"events"`
	Interaction  InteractionConfig  `yaml:"interaction"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds arena dimensions and tile energy bounds.
type GridConfig struct {
	Rows             int     `yaml:"rows"`
	Cols             int     `yaml:"cols"`
	MaxTileEnergy    float64 `yaml:"max_tile_energy"`   // Required; load fails if <= 0
	ObstacleFraction float64 `yaml:"obstacle_fraction"` // Fraction of tiles blocked at init
}

// EnergyConfig holds tile energy field parameters.
type EnergyConfig struct {
	RegenRate           float64 `yaml:"regen_rate"`            // Regrowth toward max per tick
	DiffusionRate       float64 `yaml:"diffusion_rate"`        // Flow toward neighbor mean per tick
	DensityPenalty      float64 `yaml:"density_penalty"`       // Regen reduction per unit density
	DensityPenaltyFloor float64 `yaml:"density_penalty_floor"` // Minimum regen multiplier under crowding
	TrendSmoothing      float64 `yaml:"trend_smoothing"`       // EMA factor for per-tile energy trend
	InitialFraction     float64 `yaml:"initial_fraction"`      // Mean starting energy as fraction of max
	InitialNoiseScale   float64 `yaml:"initial_noise_scale"`   // Simplex noise frequency for initial energy
}

// HarvestConfig holds forage cap shaping parameters.
type HarvestConfig struct {
	CrowdPenalty float64 `yaml:"crowd_penalty"` // Cap reduction per unit density
	TrendWeight  float64 `yaml:"trend_weight"`  // Cap reduction on declining tiles
}

// DensityConfig holds the occupancy density field parameters.
type DensityConfig struct {
	Radius int `yaml:"radius"` // Neighborhood radius in tiles
}

// TargetsConfig holds neighbor classification parameters.
type TargetsConfig struct {
	MinEnemyBias float64 `yaml:"min_enemy_bias"` // Hostility bias at zero density
	MaxEnemyBias float64 `yaml:"max_enemy_bias"` // Hostility bias at full density
}

// OrganismConfig holds per-organism upkeep and lifespan parameters.
type OrganismConfig struct {
	UpkeepBase   float64 `yaml:"upkeep_base"`   // Energy drain per tick, scaled by metabolic rate
	LifespanBase float64 `yaml:"lifespan_base"` // Minimum lifespan in ticks
	LifespanSpan float64 `yaml:"lifespan_span"` // Genome-scaled additional lifespan
	SpawnEnergy  float64 `yaml:"spawn_energy"`  // Starting energy for placed organisms
}

// ReproductionConfig holds mate selection and base probability parameters.
type ReproductionConfig struct {
	BaseRate         float64 `yaml:"base_rate"`          // Probability scale before modifiers
	DensityWeight    float64 `yaml:"density_weight"`     // Crowding suppression of base probability
	EnergyWeight     float64 `yaml:"energy_weight"`      // Local energy contribution
	TrendWeight      float64 `yaml:"trend_weight"`       // Rising-resource contribution
	SimilarityWeight float64 `yaml:"similarity_weight"`  // Partner similarity contribution
	CooldownTicks    int     `yaml:"cooldown_ticks"`     // Post-birth cooldown applied to both parents
	SpawnEnergyShare float64 `yaml:"spawn_energy_share"` // Fallback parental investment fraction
}

// DiversityConfig holds diversity threshold and penalty shaping parameters.
// These are tunable defaults, not contractual values; cmd/tune searches them.
type DiversityConfig struct {
	BaselineThreshold     float64 `yaml:"baseline_threshold"`  // Minimum pair distance before penalties
	PenaltyExponent       float64 `yaml:"penalty_exponent"`    // Sub-linear closeness shaping (0..1]
	PenaltyFloor          float64 `yaml:"penalty_floor"`       // Multiplier never drops below this
	ThresholdSmoothing    float64 `yaml:"threshold_smoothing"` // Blend of shifted threshold toward baseline
	UrgencyDensityWeight  float64 `yaml:"urgency_density_weight"`
	UrgencyScarcityWeight float64 `yaml:"urgency_scarcity_weight"`
	UrgencyDeclineWeight  float64 `yaml:"urgency_decline_weight"`
	UrgencyEventWeight    float64 `yaml:"urgency_event_weight"`
	DriveAmplification    float64 `yaml:"drive_amplification"`    // Diversity-drive penalty scaling
	KinDamping            float64 `yaml:"kin_damping"`            // Kin-comfort penalty relief
	PressureAmplification float64 `yaml:"pressure_amplification"` // Population diversity pressure scaling
	ComplementarityRelief float64 `yaml:"complementarity_relief"` // Behavior complementarity penalty relief
}

// DecayConfig holds death-energy redistribution parameters.
type DecayConfig struct {
	ReturnFraction    float64 `yaml:"return_fraction"`    // Fraction of death energy returned to the field
	ImmediateFraction float64 `yaml:"immediate_fraction"` // Share deposited at once; rest enters the pool
	ReleaseBase       float64 `yaml:"release_base"`       // Flat pool release per tick
	ReleaseRate       float64 `yaml:"release_rate"`       // Proportional pool release per tick
	PoolEpsilon       float64 `yaml:"pool_epsilon"`       // Pools below this are cleared
	MaxPoolAge        int     `yaml:"max_pool_age"`       // Ticks before a stale pool is dropped
	SpawnThreshold    float64 `yaml:"spawn_threshold"`    // Pool energy required to spawn under scarcity
}

// PopulationConfig holds scarcity controller parameters.
type PopulationConfig struct {
	Initial               int     `yaml:"initial"`                  // Organisms placed at startup
	MinPopDensity         float64 `yaml:"min_pop_density"`          // Minimum population per tile of grid area
	MinPopFloor           int     `yaml:"min_pop_floor"`            // Absolute minimum for tiny grids
	SeedEnergyBase        float64 `yaml:"seed_energy_base"`         // Seeding spawn energy before scarcity scaling
	SeedScoreEnergyWeight float64 `yaml:"seed_score_energy_weight"` // Energy vs. open-space blend in seed scoring
	SeedBatch             int     `yaml:"seed_batch"`               // Max organisms seeded per tick
}

// EventsConfig holds environmental event generation parameters.
type EventsConfig struct {
	SpawnChance float64 `yaml:"spawn_chance"` // Per-tick chance of a new event
	MaxActive   int     `yaml:"max_active"`
	MinStrength float64 `yaml:"min_strength"`
	MaxStrength float64 `yaml:"max_strength"`
	MinDuration int     `yaml:"min_duration"`
	MaxDuration int     `yaml:"max_duration"`
	MaxSpan     int     `yaml:"max_span"` // Largest event rectangle edge in tiles
}

// InteractionConfig holds combat and cooperation tuning.
type InteractionConfig struct {
	AttackFraction float64 `yaml:"attack_fraction"` // Defender energy taken per attack
	AttackCost     float64 `yaml:"attack_cost"`     // Flat attacker energy spent per attack
	CoopFraction   float64 `yaml:"coop_fraction"`   // Energy-gap share moved between allies
}

// TelemetryConfig holds stats window parameters.
type TelemetryConfig struct {
	WindowTicks     int `yaml:"window_ticks"`
	DiversitySample int `yaml:"diversity_sample"` // Organism pairs sampled for diversity pressure
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TileCount     int // Rows * Cols
	MinPopulation int // Scarcity floor for this grid area
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects unrecoverable configuration errors at load time.
// Ordinary out-of-range tunables are clamped by their consumers instead.
func (c *Config) validate() error {
	if c.Grid.MaxTileEnergy <= 0 {
		return fmt.Errorf("config: grid.max_tile_energy must be positive, got %g", c.Grid.MaxTileEnergy)
	}
	if c.Grid.Rows < 1 || c.Grid.Cols < 1 {
		return fmt.Errorf("config: grid must be at least 1x1, got %dx%d", c.Grid.Rows, c.Grid.Cols)
	}
	if c.Density.Radius < 1 {
		return fmt.Errorf("config: density.radius must be at least 1, got %d", c.Density.Radius)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TileCount = c.Grid.Rows * c.Grid.Cols

	minPop := int(float64(c.Derived.TileCount) * c.Population.MinPopDensity)
	if minPop < c.Population.MinPopFloor {
		minPop = c.Population.MinPopFloor
	}
	c.Derived.MinPopulation = minPop
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
