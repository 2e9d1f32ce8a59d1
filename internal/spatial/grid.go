package spatial

import (
	"math"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

// DefaultCellSize is ~2x the largest common collision radius (asteroids, 40)
const DefaultCellSize = 80.0

// maxRing caps the ring so cell arithmetic cannot overflow int32
const maxRing = 1 << 20

// maxCoord keeps far-away positions in range (they all land in the edge cells)
const maxCoord = 1 << 30

type cellKey struct {
	cx, cy int32
}

// Grid buckets objects by the cell their center falls in. It is rebuilt
// wholesale every frame and holds non-owning references only.
// Accessed only from the simulation goroutine, no locks.
type Grid struct {
	cellSize float64
	inv      float64
	cells    map[cellKey][]object.Object
	count    int
}

// NewGrid creates a grid; a non-positive cell size falls back to DefaultCellSize
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		inv:      1 / cellSize,
		cells:    make(map[cellKey][]object.Object, 256),
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }

// Len returns how many objects were inserted since the last Clear
func (g *Grid) Len() int { return g.count }

// Cells returns the number of non-empty cells
func (g *Grid) Cells() int {
	n := 0
	for _, bucket := range g.cells {
		if len(bucket) > 0 {
			n++
		}
	}
	return n
}

// Clear empties every cell (keeps allocated capacity). Cells that were
// already empty are dropped so an unbounded world doesn't grow the map forever.
func (g *Grid) Clear() {
	for k, bucket := range g.cells {
		if len(bucket) == 0 {
			delete(g.cells, k)
			continue
		}
		for i := range bucket {
			bucket[i] = nil
		}
		g.cells[k] = bucket[:0]
	}
	g.count = 0
}

func (g *Grid) coord(v float64) int32 {
	c := math.Floor(v * g.inv)
	if c > maxCoord {
		return maxCoord
	} else if c < -maxCoord || math.IsNaN(c) {
		return -maxCoord
	}
	return int32(c)
}

func (g *Grid) key(p geom.Vec2) cellKey {
	return cellKey{cx: g.coord(p.X), cy: g.coord(p.Y)}
}

// Insert adds obj to the cell holding its center
func (g *Grid) Insert(obj object.Object) {
	if obj == nil {
		return
	}
	k := g.key(obj.Pos())
	g.cells[k] = append(g.cells[k], obj)
	g.count++
}

// Ring returns how many cells around the center cell a query of radius spans
func (g *Grid) Ring(radius float64) int32 {
	if radius <= 0 || math.IsNaN(radius) {
		return 0
	}
	r := math.Ceil(radius * g.inv)
	if r > maxRing {
		return maxRing
	}
	return int32(r)
}

// Query returns every object in the cells a circle of radius at p could touch.
// The result is a candidate superset, callers do the exact overlap test.
func (g *Grid) Query(p geom.Vec2, radius float64) []object.Object {
	return g.QueryBuf(p, radius, nil)
}

// QueryBuf appends results to buf and returns the extended slice, avoiding per-call allocation
func (g *Grid) QueryBuf(p geom.Vec2, radius float64, buf []object.Object) []object.Object {
	if g.count == 0 {
		return buf
	}
	c := g.key(p)
	ring := g.Ring(radius)
	// A ring wider than the map itself is cheaper to answer by scanning the buckets.
	if span := int(2*ring + 1); span*span > len(g.cells) {
		for k, bucket := range g.cells {
			if abs32(k.cx-c.cx) <= ring && abs32(k.cy-c.cy) <= ring {
				buf = append(buf, bucket...)
			}
		}
		return buf
	}
	for cy := c.cy - ring; cy <= c.cy+ring; cy++ {
		for cx := c.cx - ring; cx <= c.cx+ring; cx++ {
			buf = append(buf, g.cells[cellKey{cx: cx, cy: cy}]...)
		}
	}
	return buf
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
