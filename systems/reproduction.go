package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/components"
	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/genome"
	"github.com/pthm-cable/gridlife/grid"
)

// MateChoice is the telemetry record of a committed pairing.
type MateChoice struct {
	Similarity  float64
	Diversity   float64
	Threshold   float64
	Penalty     float64
	Probability float64
	Mode        string // "weighted" or "best"
	PoolSize    int
}

// StatsRecorder is the stats collaborator surface the policy reports to.
type StatsRecorder interface {
	RecordMateChoice(rec MateChoice)
	RecordReproductionBlocked(reason string)
	DiversityPressure() float64
}

// Mate is a reproduction participant: the focal organism or a pool
// candidate. OrigCell is the position at tick start; spawn candidates use
// both.
type Mate struct {
	Entity   ecs.Entity
	Cell     Cell
	OrigCell Cell
	Vitals   *components.Vitals
	Breeding *components.Breeding
	Pheno    *components.Phenotype
	Geno     *components.Genotype

	Similarity float64 // To the focal organism; unused on the focal itself
}

// ReproEnv is the focal organism's environment snapshot for this attempt.
type ReproEnv struct {
	Density       float64 // Published local density [0,1]
	EnergyNorm    float64 // Focal tile energy as fraction of the cap
	Trend         float64 // Normalized energy trend [-1,1]
	Scarcity      float64 // Population scarcity signal [0,1]
	EventPressure float64 // Focal organism's decayed event stress [0,1]
}

// Offspring is a committed reproduction outcome.
type Offspring struct {
	Partner    ecs.Entity
	Spawn      Cell
	Genome     *genome.Genome
	InvestA    float64 // Energy the focal parent contributes
	InvestB    float64 // Energy the partner contributes
	Similarity float64
}

// ReproductionPolicy implements mate selection, the diversity-adjusted
// probability pipeline, and spawn-site scoring. Negative outcomes are
// ordinary: Attempt returns false plus a recorded block reason.
type ReproductionPolicy struct {
	repro   config.ReproductionConfig
	div     config.DiversityConfig
	tileMax float64
	zone    ZonePolicy
	stats   StatsRecorder
	rng     *rand.Rand
	simSeed int64
}

// NewReproductionPolicy creates a policy. rng must be the simulation's
// seeded stream; simSeed keys the per-pair offspring RNG.
func NewReproductionPolicy(cfg *config.Config, zone ZonePolicy, stats StatsRecorder, rng *rand.Rand, simSeed int64) *ReproductionPolicy {
	if zone == nil {
		zone = AllowAllZones{}
	}
	return &ReproductionPolicy{
		repro:   cfg.Reproduction,
		div:     cfg.Diversity,
		tileMax: cfg.Grid.MaxTileEnergy,
		zone:    zone,
		stats:   stats,
		rng:     rng,
		simSeed: simSeed,
	}
}

// Attempt runs the full pipeline for the focal organism against a mate pool
// (mates, or society when no mates are in sight). It mutates nothing; the
// caller commits the returned Offspring.
func (p *ReproductionPolicy) Attempt(g *grid.Grid, field *EnergyField, density *DensityField, focal Mate, pool []Mate, env ReproEnv) (Offspring, bool) {
	if len(pool) == 0 {
		p.blocked("empty pool")
		return Offspring{}, false
	}

	partner, mode := p.selectPartner(focal, pool)
	sim := partner.Similarity
	diversity := 1 - sim

	// Gate: reach, cooldowns, zone.
	reach := (focal.Pheno.Reach + partner.Pheno.Reach) / 2
	if float64(chebyshev(focal.Cell, partner.Cell)) > reach {
		p.blocked("out of reach")
		return Offspring{}, false
	}
	if focal.Breeding.Cooldown > 0 || partner.Breeding.Cooldown > 0 {
		p.blocked("cooldown")
		return Offspring{}, false
	}
	if dec := p.zone.ValidateArea(ZoneRequest{ParentA: focal.Cell, ParentB: partner.Cell}); !dec.Allowed {
		p.blocked(nonEmpty(dec.Reason, "zone rejected"))
		return Offspring{}, false
	}

	base := p.baseProbability(focal, env, sim)
	threshold := p.pairThreshold(focal, partner, env)
	penalty := p.diversityPenalty(focal, partner, diversity, threshold, env)
	prob := base * penalty

	// Scarcity bonus: multiplies upward only, never below the penalized value.
	if env.Scarcity > 0 {
		comp := genome.Complementarity(focal.Geno.G, partner.Geno.G)
		prob *= 1 + env.Scarcity*(0.5+0.5*comp)
	}
	prob = clamp01(prob)

	// Energy gate: both parents hold at least their own threshold fraction
	// of the tile cap.
	if focal.Vitals.Energy < focal.Geno.G.Trait(genome.ReproThreshold)*p.tileMax ||
		partner.Vitals.Energy < partner.Geno.G.Trait(genome.ReproThreshold)*p.tileMax {
		p.blocked("energy below threshold")
		return Offspring{}, false
	}

	if p.rng.Float64() >= prob {
		p.blocked("probability")
		return Offspring{}, false
	}

	spawn, ok := p.selectSpawnSite(g, field, density, focal, partner)
	if !ok {
		p.blocked("no spawn tile")
		return Offspring{}, false
	}

	// Offspring genome from a deterministic RNG stream keyed to the pair,
	// so identical seeds reproduce identical offspring.
	pairRNG := rand.New(rand.NewSource(pairSeed(p.simSeed, focal.Geno.ID, partner.Geno.ID)))
	child := genome.Crossover(focal.Geno.G, partner.Geno.G, pairRNG)

	if p.stats != nil {
		p.stats.RecordMateChoice(MateChoice{
			Similarity:  sim,
			Diversity:   diversity,
			Threshold:   threshold,
			Penalty:     penalty,
			Probability: prob,
			Mode:        mode,
			PoolSize:    len(pool),
		})
	}

	return Offspring{
		Partner:    partner.Entity,
		Spawn:      spawn,
		Genome:     child,
		InvestA:    focal.Vitals.Energy * focal.Geno.G.Trait(genome.ParentalShare),
		InvestB:    partner.Vitals.Energy * partner.Geno.G.Trait(genome.ParentalShare),
		Similarity: sim,
	}, true
}

// selectPartner samples the pool proportional to mate-preference alignment,
// falling back to the best-similarity match when every weight is ~zero.
func (p *ReproductionPolicy) selectPartner(focal Mate, pool []Mate) (Mate, string) {
	pref := focal.Geno.G.Trait(genome.MatePreference)

	weights := make([]float64, len(pool))
	var total float64
	for i, m := range pool {
		w := 1 - math.Abs(m.Similarity-pref)
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}

	if total > 1e-9 {
		draw := p.rng.Float64() * total
		for i, w := range weights {
			draw -= w
			if draw <= 0 {
				return pool[i], "weighted"
			}
		}
		return pool[len(pool)-1], "weighted"
	}

	best := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].Similarity > pool[best].Similarity {
			best = i
		}
	}
	return pool[best], "best"
}

// baseProbability blends local density, tile energy level and trend, and
// partner similarity, scaled by the focal organism's fertility.
func (p *ReproductionPolicy) baseProbability(focal Mate, env ReproEnv, sim float64) float64 {
	fert := focal.Geno.G.Trait(genome.Fertility)

	wSum := p.repro.EnergyWeight + p.repro.TrendWeight + p.repro.SimilarityWeight
	if wSum <= 0 {
		wSum = 1
	}
	vigor := (p.repro.EnergyWeight*env.EnergyNorm +
		p.repro.TrendWeight*clamp01(0.5+0.5*env.Trend) +
		p.repro.SimilarityWeight*sim) / wSum

	return clamp01(p.repro.BaseRate * (0.5 + fert) * clamp01(1-p.repro.DensityWeight*env.Density) * vigor)
}

// pairThreshold shifts the baseline diversity threshold by both organisms'
// appetites and the environment, then blends the result back toward the
// baseline proportional to urgency and population pressure.
func (p *ReproductionPolicy) pairThreshold(a, b Mate, env ReproEnv) float64 {
	baseline := p.div.BaselineThreshold

	drive := (a.Geno.G.Trait(genome.DiversityDrive) + b.Geno.G.Trait(genome.DiversityDrive)) / 2
	kin := (a.Geno.G.Trait(genome.KinComfort) + b.Geno.G.Trait(genome.KinComfort)) / 2
	fert := (a.Geno.G.Trait(genome.Fertility) + b.Geno.G.Trait(genome.Fertility)) / 2
	comp := genome.Complementarity(a.Geno.G, b.Geno.G)

	urgency := p.urgency(env)

	pressure := 0.0
	if p.stats != nil {
		pressure = clamp01(p.stats.DiversityPressure())
	}

	shift := 0.15*(2*drive-1) - // appetite widens, aversion narrows
		0.10*(2*kin-1) - // kin preference narrows
		0.05*(2*fert-1) + // high fertility risks less
		0.10*urgency +
		0.10*pressure -
		0.08*comp // complementary pairs need less raw distance

	raw := clampFloat(baseline+shift, 0, 1)

	// Smoothing: under urgency/pressure the shifted threshold matters less.
	blend := clamp01(p.div.ThresholdSmoothing * (urgency + pressure) / 2)
	return lerp(raw, baseline, blend)
}

// diversityPenalty returns the multiplicative penalty in
// [PenaltyFloor, 1] applied when pair diversity falls short of the
// threshold. Sub-linear in closeness, amplified by drive/urgency/pressure,
// damped by kin comfort, partially relieved by complementarity.
func (p *ReproductionPolicy) diversityPenalty(a, b Mate, diversity, threshold float64, env ReproEnv) float64 {
	if threshold <= 0 || diversity >= threshold {
		return 1
	}

	drive := (a.Geno.G.Trait(genome.DiversityDrive) + b.Geno.G.Trait(genome.DiversityDrive)) / 2
	kin := (a.Geno.G.Trait(genome.KinComfort) + b.Geno.G.Trait(genome.KinComfort)) / 2
	comp := genome.Complementarity(a.Geno.G, b.Geno.G)

	urgency := p.urgency(env)

	pressure := 0.0
	if p.stats != nil {
		pressure = clamp01(p.stats.DiversityPressure())
	}

	closeness := clamp01((threshold - diversity) / threshold)
	shaped := math.Pow(closeness, clampFloat(p.div.PenaltyExponent, 0.05, 1))

	evenness := (1 - comp) * 0.2 // behaviorally even pairs drag harder

	strength := shaped * (1 + p.div.DriveAmplification*drive + urgency)
	strength *= 1 + p.div.PressureAmplification*pressure + evenness
	strength *= 1 - p.div.KinDamping*kin
	strength *= 1 - p.div.ComplementarityRelief*comp

	return clampFloat(1-strength, p.div.PenaltyFloor, 1)
}

// urgency blends the environmental stressors bearing on a pair: crowding,
// population scarcity, local energy decline, and event stress on the focal
// organism.
func (p *ReproductionPolicy) urgency(env ReproEnv) float64 {
	return clamp01(p.div.UrgencyDensityWeight*env.Density +
		p.div.UrgencyScarcityWeight*env.Scarcity +
		p.div.UrgencyDeclineWeight*clamp01(-env.Trend) +
		p.div.UrgencyEventWeight*clamp01(env.EventPressure))
}

// selectSpawnSite scores candidate tiles around both parents and samples
// proportional to score, uniform when all scores are zero.
func (p *ReproductionPolicy) selectSpawnSite(g *grid.Grid, field *EnergyField, density *DensityField, a, b Mate) (Cell, bool) {
	seen := map[Cell]bool{}
	var candidates []Cell
	add := func(c Cell) {
		if !seen[c] && g.IsOpen(c.Row, c.Col) {
			seen[c] = true
			candidates = append(candidates, c)
		}
	}

	for _, origin := range []Cell{a.OrigCell, a.Cell, b.OrigCell, b.Cell} {
		add(origin)
		for _, off := range grid.AllOffsets {
			add(Cell{Row: origin.Row + off[0], Col: origin.Col + off[1]})
		}
	}

	candidates = p.zone.FilterSpawnCandidates(candidates)
	if len(candidates) == 0 {
		return Cell{}, false
	}

	crowdTol := (a.Geno.G.Trait(genome.CrowdTolerance) + b.Geno.G.Trait(genome.CrowdTolerance)) / 2
	trendAff := (a.Geno.G.Trait(genome.TrendAffinity) + b.Geno.G.Trait(genome.TrendAffinity)) / 2
	risk := (a.Geno.G.Trait(genome.RiskTolerance) + b.Geno.G.Trait(genome.RiskTolerance)) / 2

	scores := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		energyNorm := field.Available(c.Row, c.Col) / field.Max()
		crowd := density.At(c.Row, c.Col)
		comfort := 1 - math.Abs(crowd-crowdTol)
		trendNorm := clampFloat(field.TrendAt(c.Row, c.Col)/(0.01*field.Max()), -1, 1)
		trendAlign := clamp01(0.5 + 0.5*trendNorm*trendAff)

		score := 0.45*energyNorm + 0.3*comfort + 0.25*trendAlign - (1-risk)*crowd*0.3
		if score < 0 {
			score = 0
		}
		scores[i] = score
		total += score
	}

	var pick Cell
	if total <= 1e-12 {
		pick = candidates[p.rng.Intn(len(candidates))]
	} else {
		draw := p.rng.Float64() * total
		pick = candidates[len(candidates)-1]
		for i, s := range scores {
			draw -= s
			if draw <= 0 {
				pick = candidates[i]
				break
			}
		}
	}

	if dec := p.zone.ValidateArea(ZoneRequest{ParentA: a.Cell, ParentB: b.Cell, Spawn: &pick}); !dec.Allowed {
		return Cell{}, false
	}
	return pick, true
}

func (p *ReproductionPolicy) blocked(reason string) {
	if p.stats != nil {
		p.stats.RecordReproductionBlocked(reason)
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// pairSeed derives a deterministic RNG seed from the simulation seed and an
// unordered genome ID pair.
func pairSeed(simSeed int64, idA, idB uint64) int64 {
	lo, hi := idA, idB
	if hi < lo {
		lo, hi = hi, lo
	}
	x := uint64(simSeed) ^ (lo * 0x9E3779B97F4A7C15) ^ (hi * 0xBF58476D1CE4E5B9)
	// splitmix64 finalizer
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}
