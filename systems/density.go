// Package systems implements the grid tick engine: tile energy economics,
// the incremental density field, spatial target classification, the
// reproduction policy, death-energy redistribution, and the population
// scarcity controller.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/gridlife/grid"
)

// emptyEntity is the zero entity, marking an empty occupant slot.
var emptyEntity = ecs.Entity{}

// DensityField tracks the fraction of occupied tiles within a radius of each
// tile. A live buffer is updated incrementally on every occupancy change;
// a published snapshot is copied from it once per tick so every organism
// processed within a tick observes the same view.
type DensityField struct {
	rows, cols int
	radius     int

	maxCount  []int // Per-tile maximum possible neighbor count, edge-clamped
	live      []int // Occupied-neighbor counts, updated on occupancy change
	published []float64
	dirty     []bool
	dirtyIdx  []int
	synced    bool

	g *grid.Grid
}

// NewDensityField creates a density field over the given grid.
func NewDensityField(g *grid.Grid, radius int) *DensityField {
	if radius < 1 {
		radius = 1
	}
	d := &DensityField{
		rows:      g.Rows,
		cols:      g.Cols,
		radius:    radius,
		maxCount:  make([]int, g.Rows*g.Cols),
		live:      make([]int, g.Rows*g.Cols),
		published: make([]float64, g.Rows*g.Cols),
		dirty:     make([]bool, g.Rows*g.Cols),
		g:         g,
	}
	d.precomputeMaxCounts()
	return d
}

// Radius returns the neighborhood radius.
func (d *DensityField) Radius() int { return d.radius }

// precomputeMaxCounts fills the per-tile maximum neighbor count. Edge tiles
// see smaller windows, so their denominators shrink accordingly.
func (d *DensityField) precomputeMaxCounts() {
	for r := 0; r < d.rows; r++ {
		rLo := maxOf(0, r-d.radius)
		rHi := minOf(d.rows-1, r+d.radius)
		for c := 0; c < d.cols; c++ {
			cLo := maxOf(0, c-d.radius)
			cHi := minOf(d.cols-1, c+d.radius)
			d.maxCount[r*d.cols+c] = (rHi-rLo+1)*(cHi-cLo+1) - 1
		}
	}
}

// ApplyDelta records an occupancy change at (row, col): +1 when a tile
// becomes occupied, -1 when vacated. Updates the live neighbor counts of
// every tile within radius and marks them dirty. Cost is O(radius²) per
// change, not per tick.
func (d *DensityField) ApplyDelta(row, col, delta int) {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return
	}
	rLo := maxOf(0, row-d.radius)
	rHi := minOf(d.rows-1, row+d.radius)
	cLo := maxOf(0, col-d.radius)
	cHi := minOf(d.cols-1, col+d.radius)

	for r := rLo; r <= rHi; r++ {
		for c := cLo; c <= cHi; c++ {
			if r == row && c == col {
				continue // a tile is not its own neighbor
			}
			idx := r*d.cols + c
			d.live[idx] += delta
			if d.live[idx] < 0 {
				d.live[idx] = 0
			}
			if !d.dirty[idx] {
				d.dirty[idx] = true
				d.dirtyIdx = append(d.dirtyIdx, idx)
			}
		}
	}
}

// Sync copies live values into the published snapshot. Only dirty tiles are
// copied unless force is set.
func (d *DensityField) Sync(force bool) {
	if force || !d.synced {
		for i := range d.live {
			d.published[i] = d.fraction(i)
			d.dirty[i] = false
		}
		d.dirtyIdx = d.dirtyIdx[:0]
		d.synced = true
		return
	}
	for _, idx := range d.dirtyIdx {
		d.published[idx] = d.fraction(idx)
		d.dirty[idx] = false
	}
	d.dirtyIdx = d.dirtyIdx[:0]
}

func (d *DensityField) fraction(idx int) float64 {
	m := d.maxCount[idx]
	if m <= 0 {
		return 0
	}
	f := float64(d.live[idx]) / float64(m)
	return clamp01(f)
}

// At returns the published density at (row, col) in [0,1]. Out-of-range
// coordinates are clamped to the nearest tile. Before the first sync it
// falls back to an on-demand neighbor scan.
func (d *DensityField) At(row, col int) float64 {
	row = clampInt(row, 0, d.rows-1)
	col = clampInt(col, 0, d.cols-1)
	if !d.synced {
		return d.scan(row, col)
	}
	return d.published[row*d.cols+col]
}

// LiveAt returns the current (unpublished) density at (row, col).
func (d *DensityField) LiveAt(row, col int) float64 {
	row = clampInt(row, 0, d.rows-1)
	col = clampInt(col, 0, d.cols-1)
	return d.fraction(row*d.cols + col)
}

// scan counts occupied neighbors directly from the grid.
func (d *DensityField) scan(row, col int) float64 {
	rLo := maxOf(0, row-d.radius)
	rHi := minOf(d.rows-1, row+d.radius)
	cLo := maxOf(0, col-d.radius)
	cHi := minOf(d.cols-1, col+d.radius)

	occupied := 0
	for r := rLo; r <= rHi; r++ {
		for c := cLo; c <= cHi; c++ {
			if r == row && c == col {
				continue
			}
			if d.g.Occupant(r, c) != (emptyEntity) {
				occupied++
			}
		}
	}
	m := d.maxCount[row*d.cols+col]
	if m <= 0 {
		return 0
	}
	return clamp01(float64(occupied) / float64(m))
}

// Rebuild recomputes all live counts from the grid. Used by the drift
// repair path after occupancy resynchronization.
func (d *DensityField) Rebuild() {
	for i := range d.live {
		d.live[i] = 0
	}
	for r := 0; r < d.rows; r++ {
		for c := 0; c < d.cols; c++ {
			if d.g.Occupant(r, c) != (emptyEntity) {
				d.bumpNeighbors(r, c)
			}
		}
	}
	d.Sync(true)
}

func (d *DensityField) bumpNeighbors(row, col int) {
	rLo := maxOf(0, row-d.radius)
	rHi := minOf(d.rows-1, row+d.radius)
	cLo := maxOf(0, col-d.radius)
	cHi := minOf(d.cols-1, col+d.radius)
	for r := rLo; r <= rHi; r++ {
		for c := cLo; c <= cHi; c++ {
			if r == row && c == col {
				continue
			}
			d.live[r*d.cols+c]++
		}
	}
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minOf(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
