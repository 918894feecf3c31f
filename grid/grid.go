// Package grid provides the tile arena: a fixed rows x cols array of tiles,
// each holding an obstacle flag and at most one occupant entity. The grid is
// the canonical owner of occupancy; organism positions are caches.
package grid

import (
	"github.com/mlange-42/ark/ecs"
)

// OrthOffsets are the four orthogonal neighbor offsets.
var OrthOffsets = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// AllOffsets are the eight orthogonal plus diagonal neighbor offsets.
var AllOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Tile is one grid cell.
type Tile struct {
	Obstacle bool
	Occupant ecs.Entity // zero entity when empty
}

// Grid is a fixed-size tile arena.
type Grid struct {
	Rows, Cols int
	tiles      []Tile
}

// New creates an empty grid.
func New(rows, cols int) *Grid {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return &Grid{
		Rows:  rows,
		Cols:  cols,
		tiles: make([]Tile, rows*cols),
	}
}

// Index returns the flat index for (row, col). Callers must bounds-check.
func (g *Grid) Index(row, col int) int {
	return row*g.Cols + col
}

// InBounds reports whether (row, col) is inside the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// At returns the tile at (row, col), or nil when out of bounds.
func (g *Grid) At(row, col int) *Tile {
	if !g.InBounds(row, col) {
		return nil
	}
	return &g.tiles[g.Index(row, col)]
}

// IsOpen reports whether (row, col) can accept an occupant: in bounds, not an
// obstacle, and empty.
func (g *Grid) IsOpen(row, col int) bool {
	t := g.At(row, col)
	return t != nil && !t.Obstacle && t.Occupant == (ecs.Entity{})
}

// Occupant returns the entity at (row, col); the zero entity when empty or
// out of bounds.
func (g *Grid) Occupant(row, col int) ecs.Entity {
	t := g.At(row, col)
	if t == nil {
		return ecs.Entity{}
	}
	return t.Occupant
}

// SetObstacle marks or clears the obstacle flag. Occupied tiles cannot be
// blocked.
func (g *Grid) SetObstacle(row, col int, blocked bool) bool {
	t := g.At(row, col)
	if t == nil {
		return false
	}
	if blocked && t.Occupant != (ecs.Entity{}) {
		return false
	}
	t.Obstacle = blocked
	return true
}

// Place puts an entity on an open tile. Returns false if the tile is blocked,
// occupied, or out of bounds.
func (g *Grid) Place(e ecs.Entity, row, col int) bool {
	if !g.IsOpen(row, col) {
		return false
	}
	g.tiles[g.Index(row, col)].Occupant = e
	return true
}

// Remove clears the occupant at (row, col) and returns it.
func (g *Grid) Remove(row, col int) ecs.Entity {
	t := g.At(row, col)
	if t == nil {
		return ecs.Entity{}
	}
	e := t.Occupant
	t.Occupant = ecs.Entity{}
	return e
}

// Move relocates the occupant from one tile to another open tile.
func (g *Grid) Move(fromRow, fromCol, toRow, toCol int) bool {
	from := g.At(fromRow, fromCol)
	if from == nil || from.Occupant == (ecs.Entity{}) {
		return false
	}
	if !g.IsOpen(toRow, toCol) {
		return false
	}
	g.tiles[g.Index(toRow, toCol)].Occupant = from.Occupant
	from.Occupant = ecs.Entity{}
	return true
}

// Find scans the whole grid for an entity and returns its position. This is
// the slow repair path for occupancy drift.
func (g *Grid) Find(e ecs.Entity) (row, col int, ok bool) {
	for i := range g.tiles {
		if g.tiles[i].Occupant == e {
			return i / g.Cols, i % g.Cols, true
		}
	}
	return 0, 0, false
}

// CountOccupied returns the number of occupied tiles.
func (g *Grid) CountOccupied() int {
	n := 0
	for i := range g.tiles {
		if g.tiles[i].Occupant != (ecs.Entity{}) {
			n++
		}
	}
	return n
}
