package grid

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
)

type marker struct{}

// testEntities returns n distinct live entities for occupancy tests.
func testEntities(n int) []ecs.Entity {
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[marker](world)
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = mapper.NewEntity(&marker{})
	}
	return out
}

func TestPlaceAndOccupant(t *testing.T) {
	g := New(4, 4)
	e := testEntities(1)[0]

	if !g.Place(e, 1, 2) {
		t.Fatal("place on empty tile failed")
	}
	if g.Occupant(1, 2) != e {
		t.Error("occupant mismatch after place")
	}
	if g.IsOpen(1, 2) {
		t.Error("occupied tile reported open")
	}
}

func TestPlace_RejectsOccupiedAndBlocked(t *testing.T) {
	g := New(4, 4)
	es := testEntities(2)

	g.Place(es[0], 0, 0)
	if g.Place(es[1], 0, 0) {
		t.Error("second place on occupied tile succeeded")
	}

	g.SetObstacle(2, 2, true)
	if g.Place(es[1], 2, 2) {
		t.Error("place on obstacle succeeded")
	}
	if g.Place(es[1], -1, 0) {
		t.Error("place out of bounds succeeded")
	}
}

func TestSetObstacle_RejectsOccupied(t *testing.T) {
	g := New(3, 3)
	e := testEntities(1)[0]
	g.Place(e, 1, 1)
	if g.SetObstacle(1, 1, true) {
		t.Error("blocked an occupied tile")
	}
}

func TestMove(t *testing.T) {
	g := New(4, 4)
	e := testEntities(1)[0]
	g.Place(e, 0, 0)

	if !g.Move(0, 0, 3, 3) {
		t.Fatal("move to open tile failed")
	}
	if g.Occupant(0, 0) != (ecs.Entity{}) {
		t.Error("source tile still occupied after move")
	}
	if g.Occupant(3, 3) != e {
		t.Error("destination tile empty after move")
	}

	if g.Move(1, 1, 2, 2) {
		t.Error("move from empty tile succeeded")
	}
}

func TestRemove(t *testing.T) {
	g := New(3, 3)
	e := testEntities(1)[0]
	g.Place(e, 2, 1)

	if got := g.Remove(2, 1); got != e {
		t.Error("remove returned wrong entity")
	}
	if !g.IsOpen(2, 1) {
		t.Error("tile not open after remove")
	}
}

func TestFind(t *testing.T) {
	g := New(5, 7)
	es := testEntities(2)
	g.Place(es[0], 3, 6)

	r, c, ok := g.Find(es[0])
	if !ok || r != 3 || c != 6 {
		t.Errorf("Find = (%d,%d,%v), want (3,6,true)", r, c, ok)
	}
	if _, _, ok := g.Find(es[1]); ok {
		t.Error("found entity that was never placed")
	}
}

func TestCountOccupied(t *testing.T) {
	g := New(3, 3)
	es := testEntities(3)
	for i, e := range es {
		g.Place(e, i, i)
	}
	if got := g.CountOccupied(); got != 3 {
		t.Errorf("CountOccupied = %d, want 3", got)
	}
}
