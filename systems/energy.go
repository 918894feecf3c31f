package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/events"
	"github.com/pthm-cable/gridlife/genome"
	"github.com/pthm-cable/gridlife/grid"
)

// EventSource exposes the active environmental events read-only.
type EventSource interface {
	Active() []events.Event
}

// EnergyField maintains per-tile energy with regeneration, diffusion, and
// event modifiers. The next tick's values are computed into a second buffer
// and swapped at the end of a step, so a pass never reads its own writes.
//
// Occupied tiles do not store energy directly: their computed gain accrues
// in a pending buffer and is merged back the tick after the tile is vacant.
type EnergyField struct {
	rows, cols int
	max        float64
	cfg        config.EnergyConfig
	harvest    config.HarvestConfig

	cur     []float64
	next    []float64
	pending []float64
	trend   []float64 // EMA of per-tile energy deltas

	// Per-step event modifier scratch buffers
	evScale []float64
	evAdd   []float64
	evDrain []float64
}

// NewEnergyField creates an energy field seeded with simplex noise around
// the configured initial fraction of the tile cap.
func NewEnergyField(g *grid.Grid, cfg *config.Config, seed int64) *EnergyField {
	n := g.Rows * g.Cols
	f := &EnergyField{
		rows:    g.Rows,
		cols:    g.Cols,
		max:     cfg.Grid.MaxTileEnergy,
		cfg:     cfg.Energy,
		harvest: cfg.Harvest,
		cur:     make([]float64, n),
		next:    make([]float64, n),
		pending: make([]float64, n),
		trend:   make([]float64, n),
		evScale: make([]float64, n),
		evAdd:   make([]float64, n),
		evDrain: make([]float64, n),
	}

	noise := opensimplex.NewNormalized(seed)
	scale := f.cfg.InitialNoiseScale
	if scale <= 0 {
		scale = 0.05
	}
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if t := g.At(r, c); t != nil && t.Obstacle {
				continue // blocked tiles hold no energy
			}
			v := noise.Eval2(float64(c)*scale, float64(r)*scale)
			level := clamp01(f.cfg.InitialFraction * (0.5 + v))
			f.cur[r*g.Cols+c] = level * f.max
		}
	}
	return f
}

// Max returns the per-tile energy cap.
func (f *EnergyField) Max() float64 { return f.max }

// EnergyAt returns the stored energy at (row, col). Out-of-range coordinates
// read as zero.
func (f *EnergyField) EnergyAt(row, col int) float64 {
	if row < 0 || row >= f.rows || col < 0 || col >= f.cols {
		return 0
	}
	return f.cur[row*f.cols+col]
}

// PendingAt returns the stashed regen awaiting merge at (row, col).
func (f *EnergyField) PendingAt(row, col int) float64 {
	if row < 0 || row >= f.rows || col < 0 || col >= f.cols {
		return 0
	}
	return f.pending[row*f.cols+col]
}

// Available returns the energy harvestable at (row, col): stored plus
// pending.
func (f *EnergyField) Available(row, col int) float64 {
	return f.EnergyAt(row, col) + f.PendingAt(row, col)
}

// TrendAt returns the smoothed per-tick energy delta at (row, col). Negative
// values mean the tile is declining.
func (f *EnergyField) TrendAt(row, col int) float64 {
	if row < 0 || row >= f.rows || col < 0 || col >= f.cols {
		return 0
	}
	return f.trend[row*f.cols+col]
}

// Total returns the sum of stored and pending energy across the field.
func (f *EnergyField) Total() float64 {
	var sum float64
	for i := range f.cur {
		sum += f.cur[i] + f.pending[i]
	}
	return sum
}

// Deposit adds energy at (row, col) bounded by the tile's remaining
// capacity and returns the amount accepted. Occupied tiles accept into
// their pending buffer so the no-energy-under-occupant invariant holds;
// blocked tiles accept nothing.
func (f *EnergyField) Deposit(g *grid.Grid, row, col int, amount float64) float64 {
	t := g.At(row, col)
	if t == nil || t.Obstacle || amount <= 0 || math.IsNaN(amount) {
		return 0
	}
	idx := row*f.cols + col
	room := f.max - f.cur[idx] - f.pending[idx]
	if room <= 0 {
		return 0
	}
	take := math.Min(amount, room)
	if t.Occupant != emptyEntity {
		f.pending[idx] += take
	} else {
		f.cur[idx] += take
	}
	return take
}

// SetEnergy overwrites the stored energy at a tile, clamped to [0, max].
// Intended for tests and scenario setup.
func (f *EnergyField) SetEnergy(row, col int, v float64) {
	if row < 0 || row >= f.rows || col < 0 || col >= f.cols {
		return
	}
	f.cur[row*f.cols+col] = clampFloat(v, 0, f.max)
}

// Harvest consumes energy for an organism at (row, col). The cap derives
// from the forage rate narrowed by a density- and trend-aware crowding
// penalty, clamped to the genome's min/max harvest caps. Returns the amount
// actually consumed, taking pending energy first.
func (f *EnergyField) Harvest(g *grid.Grid, row, col int, prov genome.Provider, density float64) float64 {
	if row < 0 || row >= f.rows || col < 0 || col >= f.cols || prov == nil {
		return 0
	}
	idx := row*f.cols + col
	avail := f.cur[idx] + f.pending[idx]
	if avail <= 0 {
		return 0
	}

	decline := math.Max(0, -f.trend[idx]) / math.Max(f.max*0.01, 1e-9)
	crowding := clamp01(1 - f.harvest.CrowdPenalty*density - f.harvest.TrendWeight*clamp01(decline))

	minCap := prov.Trait(genome.HarvestMin) * 0.05 * f.max
	maxCap := minCap + prov.Trait(genome.HarvestMax)*0.2*f.max
	cap := clampFloat(prov.Trait(genome.ForageRate)*0.2*f.max*crowding, minCap, maxCap)

	take := math.Min(cap, avail)
	fromPending := math.Min(take, f.pending[idx])
	f.pending[idx] -= fromPending
	f.cur[idx] -= take - fromPending
	if f.cur[idx] < 0 {
		f.cur[idx] = 0
	}
	return take
}

// Step advances the field one tick: merge pending on vacated tiles, apply
// regeneration shaped by density and event modifiers, diffuse toward the
// unblocked-neighbor mean, clamp, then swap buffers.
func (f *EnergyField) Step(g *grid.Grid, density *DensityField, evs EventSource) {
	f.accumulateEventModifiers(evs)

	for r := 0; r < f.rows; r++ {
		for c := 0; c < f.cols; c++ {
			idx := r*f.cols + c
			t := g.At(r, c)
			if t.Obstacle {
				f.next[idx] = 0
				f.trend[idx] = 0
				continue
			}

			occupied := t.Occupant != emptyEntity
			cur := f.cur[idx]

			// Merge pending the tick after the occupant left.
			if !occupied && f.pending[idx] > 0 {
				cur = math.Min(f.max, cur+f.pending[idx])
				f.pending[idx] = 0
			}

			penalty := clampFloat(1-f.cfg.DensityPenalty*density.At(r, c), f.cfg.DensityPenaltyFloor, 1)
			regen := f.cfg.RegenRate * (f.max - cur) * penalty
			gain := regen*f.evScale[idx] + f.evAdd[idx] - f.evDrain[idx]

			if occupied {
				// Stash the computed gain; the tile itself stays frozen.
				if gain > 0 {
					f.pending[idx] += gain
				}
				f.next[idx] = cur
				f.trend[idx] *= 1 - f.cfg.TrendSmoothing
				continue
			}

			diffusion := f.cfg.DiffusionRate * (f.neighborMean(g, r, c) - cur)
			val := clampFloat(cur+gain+diffusion, 0, f.max)

			f.trend[idx] = (1-f.cfg.TrendSmoothing)*f.trend[idx] + f.cfg.TrendSmoothing*(val-f.cur[idx])
			f.next[idx] = val
		}
	}

	f.cur, f.next = f.next, f.cur
}

// neighborMean returns the mean stored energy of the unblocked orthogonal
// neighbors, reading the current buffer only.
func (f *EnergyField) neighborMean(g *grid.Grid, row, col int) float64 {
	var sum float64
	n := 0
	for _, off := range grid.OrthOffsets {
		r, c := row+off[0], col+off[1]
		t := g.At(r, c)
		if t == nil || t.Obstacle {
			continue
		}
		sum += f.cur[r*f.cols+c]
		n++
	}
	if n == 0 {
		return f.cur[row*f.cols+col]
	}
	return sum / float64(n)
}

// accumulateEventModifiers folds the active events into per-tile modifier
// buffers: multiplicative regen scales multiply, additive terms sum.
func (f *EnergyField) accumulateEventModifiers(evs EventSource) {
	for i := range f.evScale {
		f.evScale[i] = 1
		f.evAdd[i] = 0
		f.evDrain[i] = 0
	}
	if evs == nil {
		return
	}
	for _, ev := range evs.Active() {
		scale, add, drain := eventModifiers(ev, f.max)
		rLo := clampInt(ev.Area.Row, 0, f.rows-1)
		rHi := clampInt(ev.Area.Row+ev.Area.Height-1, 0, f.rows-1)
		cLo := clampInt(ev.Area.Col, 0, f.cols-1)
		cHi := clampInt(ev.Area.Col+ev.Area.Width-1, 0, f.cols-1)
		for r := rLo; r <= rHi; r++ {
			for c := cLo; c <= cHi; c++ {
				idx := r*f.cols + c
				f.evScale[idx] *= scale
				f.evAdd[idx] += add
				f.evDrain[idx] += drain
			}
		}
	}
}

// eventModifiers maps an event to its regen scale, additive regen, and
// additive drain contributions.
func eventModifiers(ev events.Event, tileMax float64) (scale, add, drain float64) {
	s := clamp01(ev.Strength)
	switch ev.Type {
	case events.Bloom:
		return 1 + s, s * tileMax * 0.002, 0
	case events.Drought:
		return 1 - 0.8*s, 0, s * tileMax * 0.004
	case events.Storm:
		return 1, s * tileMax * 0.003, s * tileMax * 0.001
	default:
		return 1, 0, 0
	}
}
