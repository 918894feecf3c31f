package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/components"
	"github.com/pthm-cable/gridlife/genome"
	"github.com/pthm-cable/gridlife/grid"
	"github.com/pthm-cable/gridlife/systems"
	"github.com/pthm-cable/gridlife/telemetry"
)

// TickOptions tweaks a single tick. The zero value is the normal step.
type TickOptions struct {
	// ForceDensitySync republishes the full density snapshot instead of
	// only the dirty tiles.
	ForceDensitySync bool
}

// SnapshotEntry is one organism's state in a tick snapshot.
type SnapshotEntry struct {
	ID     uint64
	Row    int
	Col    int
	Energy float64
	Age    int
}

// Snapshot is the engine's per-tick summary. TotalEnergy covers field,
// pooled, and organism-held energy together.
type Snapshot struct {
	Tick        int
	Population  int
	TotalEnergy float64
	TotalAge    int
	MaxFitness  float64
	Scarcity    float64
	Entries     []SnapshotEntry
}

// orgRef pins an organism and its position at the start of the pass so the
// iteration order is stable while entities move.
type orgRef struct {
	e        ecs.Entity
	row, col int
}

// Tick advances the simulation one step and returns the resulting
// snapshot.
func (s *Sim) Tick(opts TickOptions) Snapshot {
	s.tick++

	s.targets.ResetTick()
	s.density.Sync(opts.ForceDensitySync)
	s.events.Advance()
	s.scarcityNow = s.scarcity.Signal(s.population)

	s.decay.Step(s.scarcityNow, func(row, col int, energy float64) bool {
		_, ok := s.SpawnOrganism(row, col, genome.NewRandom(s.rng), energy)
		return ok
	})
	s.field.Step(s.grid, s.density, s.events)

	refs := s.collectOrganisms()
	for _, ref := range refs {
		s.stepOrganism(ref)
	}
	s.reapDead()

	s.seedScarcity()
	s.decay.Flush()
	s.flushTelemetry()

	return s.buildSnapshot()
}

// collectOrganisms snapshots the living population in ECS iteration order.
func (s *Sim) collectOrganisms() []orgRef {
	refs := make([]orgRef, 0, s.population)
	query := s.filter.Query()
	for query.Next() {
		pos, vit, _, _, _ := query.Get()
		if vit.Dead {
			continue
		}
		refs = append(refs, orgRef{e: query.Entity(), row: pos.Row, col: pos.Col})
	}
	return refs
}

func (s *Sim) stepOrganism(ref orgRef) {
	e := ref.e
	if !s.world.Alive(e) {
		return
	}
	pos := s.posMap.Get(e)
	vit := s.vitMap.Get(e)
	breed := s.breedMap.Get(e)
	phen := s.phenMap.Get(e)
	geno := s.genoMap.Get(e)
	if vit.Dead {
		return
	}

	if s.grid.Occupant(pos.Row, pos.Col) != e {
		s.repairOccupancy(e, pos)
	}

	vit.Age++
	if breed.Cooldown > 0 {
		breed.Cooldown--
	}
	s.applyEventPressure(pos, vit)

	vit.Energy -= s.cfg.Organism.UpkeepBase * (0.5 + phen.Metabolism)
	vit.Energy += s.field.Harvest(s.grid, pos.Row, pos.Col, geno.G, s.density.At(pos.Row, pos.Col))

	if vit.Energy <= 0 {
		s.RegisterDeath(e, "starved")
		return
	}
	if float64(vit.Age) > vit.Lifespan {
		s.RegisterDeath(e, "old age")
		return
	}

	set := s.targets.Resolve(
		s.grid, s.density,
		e, geno.ID, geno.G,
		pos.Row, pos.Col, phen.SightRadius,
		phen.AllyThresh, phen.EnemyThresh, phen.Risk,
		s.organismLookup,
	)

	s.resolveInteractions(e, pos, vit, phen, set)
	if vit.Dead {
		return
	}

	if breed.Cooldown == 0 {
		s.attemptReproduction(e, ref, pos, vit, breed, phen, geno, set)
	}
	if vit.Dead {
		return
	}

	s.maybeMove(pos, phen)
}

// applyEventPressure folds active event coverage into a decaying stress
// value on the organism.
func (s *Sim) applyEventPressure(pos *components.Position, vit *components.Vitals) {
	pressure := 0.0
	for _, ev := range s.events.Active() {
		if ev.Area.Contains(pos.Row, pos.Col) && ev.Strength > pressure {
			pressure = ev.Strength
		}
	}
	decayed := vit.EventPressure * 0.9
	if pressure > decayed {
		vit.EventPressure = pressure
	} else {
		vit.EventPressure = decayed
	}
}

// organismLookup resolves a grid occupant for the target resolver. Dead or
// reaped entities are skipped.
func (s *Sim) organismLookup(e ecs.Entity) (uint64, *genome.Genome, bool) {
	if !s.world.Alive(e) {
		return 0, nil, false
	}
	vit := s.vitMap.Get(e)
	geno := s.genoMap.Get(e)
	if vit == nil || geno == nil || vit.Dead {
		return 0, nil, false
	}
	return geno.ID, geno.G, true
}

// resolveInteractions attacks the nearest enemy in reach, or shares with
// the nearest society member when no enemy is close.
func (s *Sim) resolveInteractions(e ecs.Entity, pos *components.Position, vit *components.Vitals, phen *components.Phenotype, set systems.TargetSet) {
	reach := int(phen.Reach)
	if t, ok := nearestTarget(set.Enemies, pos.Row, pos.Col, reach); ok {
		tv := s.vitMap.Get(t.Entity)
		if tv == nil || tv.Dead {
			return
		}
		out := s.resolver.Resolve(systems.Intent{
			Actor:     e,
			Target:    t.Entity,
			ActorPos:  systems.Cell{Row: pos.Row, Col: pos.Col},
			TargetPos: t.Cell,
			Hostile:   true,
			Strength:  0.5 + 0.5*phen.Risk,
		}, vit, tv)
		if out.TargetDied {
			s.RegisterDeath(t.Entity, "combat")
		}
		if vit.Energy <= 0 {
			s.RegisterDeath(e, "combat")
		}
		return
	}
	if t, ok := nearestTarget(set.Society, pos.Row, pos.Col, reach); ok {
		tv := s.vitMap.Get(t.Entity)
		if tv == nil || tv.Dead {
			return
		}
		s.resolver.Resolve(systems.Intent{
			Actor:     e,
			Target:    t.Entity,
			ActorPos:  systems.Cell{Row: pos.Row, Col: pos.Col},
			TargetPos: t.Cell,
			Strength:  1,
		}, vit, tv)
	}
}

// nearestTarget returns the closest target within reach, ties broken by
// scan order.
func nearestTarget(targets []systems.Target, row, col, reach int) (systems.Target, bool) {
	best := -1
	bestDist := reach + 1
	for i, t := range targets {
		d := chebyshevDist(row, col, t.Cell.Row, t.Cell.Col)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return systems.Target{}, false
	}
	return targets[best], true
}

func (s *Sim) attemptReproduction(e ecs.Entity, ref orgRef, pos *components.Position, vit *components.Vitals, breed *components.Breeding, phen *components.Phenotype, geno *components.Genotype, set systems.TargetSet) {
	candidates := set.Mates
	if len(candidates) == 0 {
		candidates = set.Society
	}
	pool := make([]systems.Mate, 0, len(candidates))
	for _, t := range candidates {
		m, ok := s.mateFor(t)
		if !ok {
			continue
		}
		pool = append(pool, m)
	}

	focal := systems.Mate{
		Entity:   e,
		Cell:     systems.Cell{Row: pos.Row, Col: pos.Col},
		OrigCell: systems.Cell{Row: ref.row, Col: ref.col},
		Vitals:   vit,
		Breeding: breed,
		Pheno:    phen,
		Geno:     geno,
	}
	env := systems.ReproEnv{
		Density:       s.density.At(pos.Row, pos.Col),
		EnergyNorm:    clampUnit(s.field.Available(pos.Row, pos.Col) / s.field.Max()),
		Trend:         normalizedTrend(s.field.TrendAt(pos.Row, pos.Col), s.field.Max()),
		Scarcity:      s.scarcityNow,
		EventPressure: vit.EventPressure,
	}

	child, ok := s.repro.Attempt(s.grid, s.field, s.density, focal, pool, env)
	if !ok {
		return
	}

	partnerVit := s.vitMap.Get(child.Partner)
	partnerBreed := s.breedMap.Get(child.Partner)
	if partnerVit == nil || partnerBreed == nil || partnerVit.Dead {
		return
	}

	vit.Energy -= child.InvestA
	partnerVit.Energy -= child.InvestB
	breed.Cooldown = s.cfg.Reproduction.CooldownTicks
	partnerBreed.Cooldown = s.cfg.Reproduction.CooldownTicks

	s.SpawnOrganism(child.Spawn.Row, child.Spawn.Col, child.Genome, child.InvestA+child.InvestB)

	if vit.Energy <= 0 {
		s.RegisterDeath(e, "exhausted")
	}
	if partnerVit.Energy <= 0 {
		s.RegisterDeath(child.Partner, "exhausted")
	}
}

// mateFor builds a Mate record from a resolved target.
func (s *Sim) mateFor(t systems.Target) (systems.Mate, bool) {
	if !s.world.Alive(t.Entity) {
		return systems.Mate{}, false
	}
	vit := s.vitMap.Get(t.Entity)
	breed := s.breedMap.Get(t.Entity)
	phen := s.phenMap.Get(t.Entity)
	geno := s.genoMap.Get(t.Entity)
	if vit == nil || vit.Dead || breed.Cooldown > 0 {
		return systems.Mate{}, false
	}
	return systems.Mate{
		Entity:     t.Entity,
		Cell:       t.Cell,
		OrigCell:   t.Cell,
		Vitals:     vit,
		Breeding:   breed,
		Pheno:      phen,
		Geno:       geno,
		Similarity: t.Similarity,
	}, true
}

// maybeMove relocates the organism to the best adjacent open tile when its
// genome rolls a move and a neighbor beats the current spot.
func (s *Sim) maybeMove(pos *components.Position, phen *components.Phenotype) {
	if s.rng.Float64() >= phen.MoveChance {
		return
	}
	cur := s.tileScore(pos.Row, pos.Col, phen)
	bestR, bestC := pos.Row, pos.Col
	best := cur
	for _, off := range grid.AllOffsets {
		r, c := pos.Row+off[0], pos.Col+off[1]
		if !s.grid.IsOpen(r, c) {
			continue
		}
		if score := s.tileScore(r, c, phen); score > best {
			best, bestR, bestC = score, r, c
		}
	}
	if bestR == pos.Row && bestC == pos.Col {
		return
	}
	if !s.grid.Move(pos.Row, pos.Col, bestR, bestC) {
		return
	}
	s.density.ApplyDelta(pos.Row, pos.Col, -1)
	s.density.ApplyDelta(bestR, bestC, 1)
	pos.Row, pos.Col = bestR, bestC
}

// tileScore blends available energy with crowd comfort for movement
// decisions.
func (s *Sim) tileScore(row, col int, phen *components.Phenotype) float64 {
	energy := s.field.Available(row, col) / s.field.Max()
	crowd := s.density.At(row, col)
	comfort := 1 - math.Abs(crowd-phen.Risk*0.5)
	return energy + 0.5*comfort
}

// reapDead removes entities queued by RegisterDeath during the pass.
func (s *Sim) reapDead() {
	for _, e := range s.deadQueue {
		if s.world.Alive(e) {
			s.mapper.Remove(e)
		}
	}
	s.deadQueue = s.deadQueue[:0]
}

// seedScarcity injects fresh organisms when the population is below the
// grid's minimum.
func (s *Sim) seedScarcity() {
	sites := s.scarcity.SeedSites(s.grid, s.field, s.density, s.population)
	for _, site := range sites {
		s.SpawnOrganism(site.Cell.Row, site.Cell.Col, genome.NewRandom(s.rng), site.Energy)
	}
}

// flushTelemetry closes the stats window when due and feeds diversity
// samples beforehand.
func (s *Sim) flushTelemetry() {
	col, ok := s.stats.(*telemetry.Collector)
	if !ok || !col.ShouldFlush(s.tick) {
		return
	}
	col.SetDiversitySamples(s.sampleDiversity())

	energies := make([]float64, 0, s.population)
	query := s.filter.Query()
	for query.Next() {
		_, vit, _, _, _ := query.Get()
		if !vit.Dead {
			energies = append(energies, vit.Energy)
		}
	}
	ws := col.Flush(s.tick, telemetry.WorldSample{
		Population:     s.population,
		FieldEnergy:    s.field.Total(),
		PooledEnergy:   s.decay.TotalPooled(),
		OrganismEnergy: energies,
		Scarcity:       s.scarcityNow,
		ActiveEvents:   len(s.events.Active()),
	})
	s.log.Info("stats", "window", ws)
	s.lastWindow = &ws
}

// LastWindow returns the most recent flushed stats window, or nil before
// the first flush.
func (s *Sim) LastWindow() *telemetry.WindowStats { return s.lastWindow }

// sampleDiversity draws random living pairs and measures their genome
// similarity.
func (s *Sim) sampleDiversity() []float64 {
	want := s.cfg.Telemetry.DiversitySample
	if want <= 0 || s.population < 2 {
		return nil
	}
	genomes := make([]*genome.Genome, 0, s.population)
	query := s.filter.Query()
	for query.Next() {
		_, vit, _, _, geno := query.Get()
		if !vit.Dead {
			genomes = append(genomes, geno.G)
		}
	}
	if len(genomes) < 2 {
		return nil
	}
	sims := make([]float64, 0, want)
	for i := 0; i < want; i++ {
		a := s.rng.Intn(len(genomes))
		b := s.rng.Intn(len(genomes) - 1)
		if b >= a {
			b++
		}
		sims = append(sims, genome.Similarity(genomes[a], genomes[b]))
	}
	return sims
}

func (s *Sim) buildSnapshot() Snapshot {
	snap := Snapshot{
		Tick:     s.tick,
		Scarcity: s.scarcityNow,
		Entries:  make([]SnapshotEntry, 0, s.population),
	}
	orgEnergy := 0.0
	query := s.filter.Query()
	for query.Next() {
		pos, vit, _, _, geno := query.Get()
		if vit.Dead {
			continue
		}
		snap.Entries = append(snap.Entries, SnapshotEntry{
			ID:     geno.ID,
			Row:    pos.Row,
			Col:    pos.Col,
			Energy: vit.Energy,
			Age:    vit.Age,
		})
		orgEnergy += vit.Energy
		snap.TotalAge += vit.Age
		if fit := fitness(vit); fit > snap.MaxFitness {
			snap.MaxFitness = fit
		}
	}
	snap.Population = len(snap.Entries)
	snap.TotalEnergy = s.field.Total() + s.decay.TotalPooled() + orgEnergy
	return snap
}

// fitness scores an organism by survival time weighted by its energy
// reserve.
func fitness(vit *components.Vitals) float64 {
	return float64(vit.Age) + vit.Energy
}

func chebyshevDist(r0, c0, r1, c1 int) int {
	dr := absInt(r0 - r1)
	dc := absInt(c0 - c1)
	if dr > dc {
		return dr
	}
	return dc
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizedTrend maps the raw energy trend onto [-1,1] against one
// percent of the tile cap per tick.
func normalizedTrend(trend, max float64) float64 {
	if max <= 0 {
		return 0
	}
	v := trend / (0.01 * max)
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
