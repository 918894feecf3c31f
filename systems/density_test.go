package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/gridlife/config"
	"github.com/pthm-cable/gridlife/grid"
)

func init() {
	config.MustInit("")
}

// bruteDensity recomputes the density at (row, col) from raw counts.
func bruteDensity(counts [][]int, rows, cols, radius, row, col int) float64 {
	rLo, rHi := row-radius, row+radius
	cLo, cHi := col-radius, col+radius
	if rLo < 0 {
		rLo = 0
	}
	if rHi > rows-1 {
		rHi = rows - 1
	}
	if cLo < 0 {
		cLo = 0
	}
	if cHi > cols-1 {
		cHi = cols - 1
	}
	maxCount := (rHi-rLo+1)*(cHi-cLo+1) - 1
	if maxCount <= 0 {
		return 0
	}
	n := 0
	for r := rLo; r <= rHi; r++ {
		for c := cLo; c <= cHi; c++ {
			if r == row && c == col {
				continue
			}
			n += counts[r][c]
		}
	}
	return float64(n) / float64(maxCount)
}

// ---------- Range invariant ----------

func TestDensity_RangeUnderRandomOccupancy(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, radius := range []int{1, 2, 3, 5} {
		g := grid.New(12, 9)
		d := NewDensityField(g, radius)

		for i := 0; i < 60; i++ {
			d.ApplyDelta(rng.Intn(12), rng.Intn(9), 1)
		}
		d.Sync(true)

		for r := 0; r < 12; r++ {
			for c := 0; c < 9; c++ {
				v := d.At(r, c)
				if v < 0 || v > 1 {
					t.Fatalf("radius %d: density(%d,%d) = %f, want [0,1]", radius, r, c, v)
				}
			}
		}
	}
}

func TestDensity_FullNeighborhoodHitsOne(t *testing.T) {
	g := grid.New(7, 7)
	d := NewDensityField(g, 1)
	// Fill every tile around the center.
	for r := 2; r <= 4; r++ {
		for c := 2; c <= 4; c++ {
			if r == 3 && c == 3 {
				continue
			}
			d.ApplyDelta(r, c, 1)
		}
	}
	d.Sync(true)
	if v := d.At(3, 3); math.Abs(v-1) > 1e-9 {
		t.Errorf("saturated neighborhood density = %f, want 1", v)
	}
}

// ---------- Incremental vs full recomputation ----------

func TestDensity_IncrementalMatchesBrute(t *testing.T) {
	const rows, cols, radius = 10, 8, 2
	rng := rand.New(rand.NewSource(12))
	g := grid.New(rows, cols)
	d := NewDensityField(g, radius)
	counts := make([][]int, rows)
	for r := range counts {
		counts[r] = make([]int, cols)
	}

	// Random arrivals and departures. Each tile holds at most one occupant,
	// matching the one-occupant grid the field tracks in production.
	for i := 0; i < 200; i++ {
		r, c := rng.Intn(rows), rng.Intn(cols)
		delta := 1
		if counts[r][c] > 0 {
			delta = -1
		}
		counts[r][c] += delta
		d.ApplyDelta(r, c, delta)
	}
	d.Sync(true)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			want := bruteDensity(counts, rows, cols, radius, r, c)
			got := d.At(r, c)
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("density(%d,%d) = %f, want %f", r, c, got, want)
			}
		}
	}
}

// ---------- Snapshot semantics ----------

func TestDensity_PublishedLagsLive(t *testing.T) {
	g := grid.New(6, 6)
	d := NewDensityField(g, 1)
	d.Sync(true)

	d.ApplyDelta(2, 2, 1)
	if v := d.At(2, 3); v != 0 {
		t.Errorf("published density moved before Sync: %f", v)
	}
	if v := d.LiveAt(2, 3); v <= 0 {
		t.Errorf("live density did not move after ApplyDelta: %f", v)
	}

	d.Sync(false)
	if v := d.At(2, 3); v <= 0 {
		t.Errorf("published density did not catch up after Sync: %f", v)
	}
}

func TestDensity_ExcludesCenterTile(t *testing.T) {
	g := grid.New(5, 5)
	d := NewDensityField(g, 2)
	d.ApplyDelta(2, 2, 1)
	d.Sync(true)
	if v := d.At(2, 2); v != 0 {
		t.Errorf("occupant contributes to its own density: %f", v)
	}
}

func TestDensity_EdgeClamping(t *testing.T) {
	g := grid.New(6, 6)
	d := NewDensityField(g, 1)
	// Corner neighborhood has 3 neighbors; fill them all.
	d.ApplyDelta(0, 1, 1)
	d.ApplyDelta(1, 0, 1)
	d.ApplyDelta(1, 1, 1)
	d.Sync(true)
	if v := d.At(0, 0); math.Abs(v-1) > 1e-9 {
		t.Errorf("corner density = %f, want 1 with all 3 neighbors filled", v)
	}
}
