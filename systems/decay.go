package systems

import (
	"math"
	"sort"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/grid"
)

// SpawnFromPool converts a decay pool into a new organism. Returns false
// when the host declines (tile taken, spawn failed); the pool then keeps
// diffusing instead.
type SpawnFromPool func(row, col int, energy float64) bool

// decayPool is the pending energy reserve left at a death tile.
type decayPool struct {
	Amount float64
	Age    int
}

// DecayRedistributor returns a fraction of each death's energy to the field:
// an immediate share deposited at the death tile with overflow cascaded to
// orthogonal neighbors, and a reserve share released gradually from a
// per-tile pool. All pool writes are buffered within a tick and applied as
// clamped deltas afterward, so processing order cannot bias the result.
type DecayRedistributor struct {
	cfg   config.DecayConfig
	field *EnergyField
	g     *grid.Grid

	pools  map[int]*decayPool
	writes map[int]float64
}

// NewDecayRedistributor creates a redistributor over the given field.
func NewDecayRedistributor(cfg config.DecayConfig, g *grid.Grid, field *EnergyField) *DecayRedistributor {
	return &DecayRedistributor{
		cfg:    cfg,
		field:  field,
		g:      g,
		pools:  make(map[int]*decayPool),
		writes: make(map[int]float64),
	}
}

// OnDeath registers a death at (row, col) with the organism's remaining
// energy. The immediate share is deposited now; whatever the tiles could
// not hold joins the reserve in the tile's pool.
func (d *DecayRedistributor) OnDeath(row, col int, energy float64) {
	if energy <= 0 || math.IsNaN(energy) || !d.g.InBounds(row, col) {
		return
	}
	returned := energy * clamp01(d.cfg.ReturnFraction)
	immediate := returned * clamp01(d.cfg.ImmediateFraction)
	deposited := d.depositCascade(row, col, immediate)

	reserve := returned - deposited
	if reserve > 0 {
		d.writes[d.g.Index(row, col)] += reserve
	}
}

// depositCascade deposits into the tile, then spills the remainder over the
// orthogonal neighbors, each bounded by its remaining capacity. Returns the
// amount actually placed.
func (d *DecayRedistributor) depositCascade(row, col int, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	remaining := amount
	remaining -= d.field.Deposit(d.g, row, col, remaining)
	for _, off := range grid.OrthOffsets {
		if remaining <= 0 {
			break
		}
		remaining -= d.field.Deposit(d.g, row+off[0], col+off[1], remaining)
	}
	return amount - remaining
}

// Step releases pooled energy back into the field. Each pool releases
// min(pool, base + pool*rate) per tick; its age increments only on ticks
// where nothing could be released. Pools past the maximum age or below
// epsilon are cleared. While the population is scarce, an eligible pool
// spawns a new organism instead of diffusing.
func (d *DecayRedistributor) Step(scarcity float64, spawn SpawnFromPool) {
	d.Flush()

	// Deterministic order over the sparse pool set.
	keys := make([]int, 0, len(d.pools))
	for k := range d.pools {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, idx := range keys {
		p := d.pools[idx]
		row, col := idx/d.g.Cols, idx%d.g.Cols

		if scarcity > 0 && spawn != nil && p.Amount >= d.cfg.SpawnThreshold && d.g.IsOpen(row, col) {
			if spawn(row, col, p.Amount) {
				d.writes[idx] -= p.Amount
				continue
			}
		}

		release := math.Min(p.Amount, d.cfg.ReleaseBase+p.Amount*d.cfg.ReleaseRate)
		if p.Amount-release < d.cfg.PoolEpsilon {
			release = p.Amount // drain fully rather than strand a sliver
		}
		deposited := d.depositCascade(row, col, release)
		if deposited > 0 {
			d.writes[idx] -= deposited
		} else {
			p.Age++
			if p.Age > d.cfg.MaxPoolAge {
				d.writes[idx] -= p.Amount
			}
		}
	}

	d.Flush()
}

// Flush applies the buffered pool deltas, clamping each pool at zero and
// clearing pools that fall below epsilon. Called at the start and end of
// Step and at the end of every tick so death registrations from the
// organism pass land before the next release pass.
func (d *DecayRedistributor) Flush() {
	if len(d.writes) == 0 {
		return
	}
	keys := make([]int, 0, len(d.writes))
	for k := range d.writes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, idx := range keys {
		delta := d.writes[idx]
		p := d.pools[idx]
		if p == nil {
			if delta <= 0 {
				continue
			}
			p = &decayPool{}
			d.pools[idx] = p
		}
		p.Amount += delta
		if p.Amount < d.cfg.PoolEpsilon {
			p.Amount = 0
		}
		if p.Amount == 0 {
			delete(d.pools, idx)
		}
	}
	clear(d.writes)
}

// PoolAt returns the pooled energy at (row, col), buffered writes included.
func (d *DecayRedistributor) PoolAt(row, col int) float64 {
	if !d.g.InBounds(row, col) {
		return 0
	}
	idx := d.g.Index(row, col)
	var amt float64
	if p := d.pools[idx]; p != nil {
		amt = p.Amount
	}
	return amt + d.writes[idx]
}

// TotalPooled returns the energy held across all pools and pending writes.
func (d *DecayRedistributor) TotalPooled() float64 {
	var sum float64
	for _, p := range d.pools {
		sum += p.Amount
	}
	for _, w := range d.writes {
		sum += w
	}
	return sum
}

// ActivePools returns the number of tiles holding a pool.
func (d *DecayRedistributor) ActivePools() int { return len(d.pools) }
