// Package sim composes the grid, energy field, density field, and the
// stochastic policies into a single synchronous tick engine. One Tick call
// fully executes before returning; all mutable state is owned by the Sim
// instance and no external concurrent writers are assumed.
package sim

import (
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/components"
	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/events"
	"github.com/pthm-cable/gridlife/genome"
	"github.com/pthm-cable/gridlife/grid"
	"github.com/pthm-cable/gridlife/systems"
	"github.com/pthm-cable/gridlife/telemetry"
)

// repairWarnInterval rate-limits the bookkeeping drift diagnostic.
const repairWarnInterval = 120

// Stats is the collaborator the engine reports lifecycle and reproduction
// telemetry to.
type Stats interface {
	systems.StatsRecorder
	OnBirth(id uint64, row, col int, energy float64)
	OnDeath(id uint64, row, col int, energy float64, cause string)
}

// Options configures a simulation instance. Zero-value collaborators get
// working defaults.
type Options struct {
	Config       *config.Config // nil uses the global config
	Seed         int64
	Logger       *slog.Logger
	Stats        Stats
	Zone         systems.ZonePolicy
	Interactions systems.InteractionResolver

	// SkipInitialPopulation leaves the grid empty; tests place organisms
	// themselves.
	SkipInitialPopulation bool
}

// Sim is one simulation instance.
type Sim struct {
	cfg  *config.Config
	log  *slog.Logger
	rng  *rand.Rand
	seed int64

	world  *ecs.World
	mapper *ecs.Map5[components.Position, components.Vitals, components.Breeding, components.Phenotype, components.Genotype]
	filter *ecs.Filter5[components.Position, components.Vitals, components.Breeding, components.Phenotype, components.Genotype]

	posMap   *ecs.Map1[components.Position]
	vitMap   *ecs.Map1[components.Vitals]
	breedMap *ecs.Map1[components.Breeding]
	phenMap  *ecs.Map1[components.Phenotype]
	genoMap  *ecs.Map1[components.Genotype]

	grid     *grid.Grid
	field    *systems.EnergyField
	density  *systems.DensityField
	targets  *systems.TargetResolver
	repro    *systems.ReproductionPolicy
	decay    *systems.DecayRedistributor
	scarcity *systems.ScarcityController
	events   *events.Manager
	resolver systems.InteractionResolver
	stats    Stats

	tick        int
	nextID      uint64
	population  int
	scarcityNow float64

	deadQueue      []ecs.Entity
	lastRepairWarn int
	lastWindow     *telemetry.WindowStats
}

// New creates a simulation from the given options.
func New(opts Options) *Sim {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stats := opts.Stats
	if stats == nil {
		stats = telemetry.NewCollector(cfg.Telemetry.WindowTicks)
	}
	resolver := opts.Interactions
	if resolver == nil {
		resolver = systems.NewEnergyTransferResolver(cfg.Interaction)
	}

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(opts.Seed))

	s := &Sim{
		cfg:  cfg,
		log:  logger,
		rng:  rng,
		seed: opts.Seed,

		world:  world,
		mapper: ecs.NewMap5[components.Position, components.Vitals, components.Breeding, components.Phenotype, components.Genotype](world),
		filter: ecs.NewFilter5[components.Position, components.Vitals, components.Breeding, components.Phenotype, components.Genotype](world),

		posMap:   ecs.NewMap1[components.Position](world),
		vitMap:   ecs.NewMap1[components.Vitals](world),
		breedMap: ecs.NewMap1[components.Breeding](world),
		phenMap:  ecs.NewMap1[components.Phenotype](world),
		genoMap:  ecs.NewMap1[components.Genotype](world),

		resolver: resolver,
		stats:    stats,
		nextID:   1,

		lastRepairWarn: -repairWarnInterval,
	}

	s.grid = grid.New(cfg.Grid.Rows, cfg.Grid.Cols)
	s.placeObstacles()

	s.field = systems.NewEnergyField(s.grid, cfg, opts.Seed)
	s.density = systems.NewDensityField(s.grid, cfg.Density.Radius)
	s.targets = systems.NewTargetResolver(cfg.Targets, rng)
	s.repro = systems.NewReproductionPolicy(cfg, opts.Zone, stats, rng, opts.Seed)
	s.decay = systems.NewDecayRedistributor(cfg.Decay, s.grid, s.field)
	s.scarcity = systems.NewScarcityController(cfg)
	s.events = events.NewManager(cfg.Grid.Rows, cfg.Grid.Cols, cfg.Events, rng)

	if !opts.SkipInitialPopulation {
		s.seedInitialPopulation()
	}
	s.density.Sync(true)

	return s
}

// placeObstacles blocks a deterministic random fraction of tiles.
func (s *Sim) placeObstacles() {
	frac := s.cfg.Grid.ObstacleFraction
	if frac <= 0 {
		return
	}
	for r := 0; r < s.grid.Rows; r++ {
		for c := 0; c < s.grid.Cols; c++ {
			if s.rng.Float64() < frac {
				s.grid.SetObstacle(r, c, true)
			}
		}
	}
}

// seedInitialPopulation places the configured starting organisms on random
// open tiles with random genomes.
func (s *Sim) seedInitialPopulation() {
	want := s.cfg.Population.Initial
	attempts := 0
	for placed := 0; placed < want && attempts < want*20; attempts++ {
		r := s.rng.Intn(s.grid.Rows)
		c := s.rng.Intn(s.grid.Cols)
		if !s.grid.IsOpen(r, c) {
			continue
		}
		if _, ok := s.SpawnOrganism(r, c, genome.NewRandom(s.rng), s.cfg.Organism.SpawnEnergy); ok {
			placed++
		}
	}
}

// Grid exposes the arena for hosts and tests.
func (s *Sim) Grid() *grid.Grid { return s.grid }

// Field exposes the tile energy field.
func (s *Sim) Field() *systems.EnergyField { return s.field }

// Decay exposes the decay redistributor.
func (s *Sim) Decay() *systems.DecayRedistributor { return s.decay }

// Events exposes the event manager so hosts can inject events.
func (s *Sim) Events() *events.Manager { return s.events }

// Population returns the living organism count.
func (s *Sim) Population() int { return s.population }

// Tick returns the number of completed ticks.
func (s *Sim) TickCount() int { return s.tick }

// GetDensityAt returns the published density at (row, col) in [0,1].
// Out-of-range coordinates clamp to the nearest tile.
func (s *Sim) GetDensityAt(row, col int) float64 {
	return s.density.At(row, col)
}

// SpawnOrganism creates an organism at (row, col). A nil genome draws a
// random one. Returns false when the tile is blocked or occupied.
func (s *Sim) SpawnOrganism(row, col int, g *genome.Genome, energy float64) (ecs.Entity, bool) {
	if !s.grid.IsOpen(row, col) {
		return ecs.Entity{}, false
	}
	if g == nil {
		g = genome.NewRandom(s.rng)
	}
	if energy < 0 {
		energy = 0
	}

	id := s.nextID
	s.nextID++

	pos := components.Position{Row: row, Col: col}
	vit := components.Vitals{
		Energy:   energy,
		Lifespan: s.cfg.Organism.LifespanBase + g.Trait(genome.Longevity)*s.cfg.Organism.LifespanSpan,
	}
	breed := components.Breeding{}
	phen := decodePhenotype(g)
	geno := components.Genotype{ID: id, G: g}

	e := s.mapper.NewEntity(&pos, &vit, &breed, &phen, &geno)
	s.grid.Place(e, row, col)
	s.density.ApplyDelta(row, col, 1)
	s.population++
	s.stats.OnBirth(id, row, col, energy)
	return e, true
}

// PlaceOrganism relocates an existing organism onto an open tile.
func (s *Sim) PlaceOrganism(e ecs.Entity, row, col int) bool {
	if !s.world.Alive(e) || !s.grid.IsOpen(row, col) {
		return false
	}
	pos := s.posMap.Get(e)
	if pos == nil {
		return false
	}
	if s.grid.Occupant(pos.Row, pos.Col) == e {
		s.grid.Remove(pos.Row, pos.Col)
		s.density.ApplyDelta(pos.Row, pos.Col, -1)
	}
	s.grid.Place(e, row, col)
	s.density.ApplyDelta(row, col, 1)
	pos.Row, pos.Col = row, col
	return true
}

// RemoveOrganism removes an organism without triggering death-energy
// redistribution. Administrative path; RegisterDeath is the lifecycle one.
func (s *Sim) RemoveOrganism(e ecs.Entity) bool {
	if !s.world.Alive(e) {
		return false
	}
	pos := s.posMap.Get(e)
	if pos != nil && s.grid.Occupant(pos.Row, pos.Col) == e {
		s.grid.Remove(pos.Row, pos.Col)
		s.density.ApplyDelta(pos.Row, pos.Col, -1)
	}
	vit := s.vitMap.Get(e)
	if vit == nil || !vit.Dead {
		s.population--
	}
	s.mapper.Remove(e)
	return true
}

// RegisterDeath marks an organism dead, vacates its tile, and routes its
// remaining energy through the decay redistributor. The entity itself is
// reaped at the end of the tick.
func (s *Sim) RegisterDeath(e ecs.Entity, cause string) {
	if !s.world.Alive(e) {
		return
	}
	vit := s.vitMap.Get(e)
	pos := s.posMap.Get(e)
	geno := s.genoMap.Get(e)
	if vit == nil || pos == nil || vit.Dead {
		return
	}
	vit.Dead = true

	if s.grid.Occupant(pos.Row, pos.Col) == e {
		s.grid.Remove(pos.Row, pos.Col)
		s.density.ApplyDelta(pos.Row, pos.Col, -1)
	}

	remaining := vit.Energy
	if remaining < 0 {
		remaining = 0
	}
	s.decay.OnDeath(pos.Row, pos.Col, remaining)

	var id uint64
	if geno != nil {
		id = geno.ID
	}
	s.stats.OnDeath(id, pos.Row, pos.Col, remaining, cause)
	s.population--
	s.deadQueue = append(s.deadQueue, e)
}

// repairOccupancy resynchronizes an organism whose cached position
// disagrees with the grid. The grid is canonical: a full-grid scan locates
// the entity; if it is missing entirely it is re-placed at (or near) its
// cached position. The condition is warned about and repaired, never fatal.
func (s *Sim) repairOccupancy(e ecs.Entity, pos *components.Position) {
	if r, c, ok := s.grid.Find(e); ok {
		pos.Row, pos.Col = r, c
	} else if !s.grid.Place(e, pos.Row, pos.Col) {
		if r, c, ok := s.nearestOpen(pos.Row, pos.Col); ok {
			s.grid.Place(e, r, c)
			pos.Row, pos.Col = r, c
		}
	}
	s.density.Rebuild()

	if s.tick-s.lastRepairWarn >= repairWarnInterval {
		s.lastRepairWarn = s.tick
		s.log.Warn("occupancy drift repaired",
			"tick", s.tick,
			"row", pos.Row,
			"col", pos.Col,
		)
	}
}

// nearestOpen searches outward for the closest open tile.
func (s *Sim) nearestOpen(row, col int) (int, int, bool) {
	maxRadius := s.grid.Rows
	if s.grid.Cols > maxRadius {
		maxRadius = s.grid.Cols
	}
	for radius := 0; radius <= maxRadius; radius++ {
		for r := row - radius; r <= row+radius; r++ {
			for c := col - radius; c <= col+radius; c++ {
				if absInt(r-row) != radius && absInt(c-col) != radius {
					continue // ring interior already checked
				}
				if s.grid.IsOpen(r, c) {
					return r, c, true
				}
			}
		}
	}
	return 0, 0, false
}

// decodePhenotype caches the genome's movement and interaction traits.
func decodePhenotype(g *genome.Genome) components.Phenotype {
	return components.Phenotype{
		SightRadius: 1 + int(g.Trait(genome.SightRadius)*4),
		MoveChance:  g.Trait(genome.MoveChance),
		Reach:       1 + g.Trait(genome.Reach)*4,
		AllyThresh:  0.55 + 0.35*g.Trait(genome.AllyThreshold),
		EnemyThresh: 0.10 + 0.30*g.Trait(genome.EnemyThreshold),
		Risk:        g.Trait(genome.RiskTolerance),
		Metabolism:  g.Trait(genome.Metabolism),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
