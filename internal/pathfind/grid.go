// Package pathfind implements grid A* search with time-indexed dynamic
// obstacles: besides static walls, a candidate step is blocked when it
// would land too close to where another player is scheduled to be at
// the candidate's own arrival time, so two plans never collide even
// though they're computed independently.
package pathfind

import "github.com/wricardo/aitown/internal/geom"

// CollisionThreshold is the minimum separation, in tiles, between a
// candidate position and any other player's position at the candidate's
// scheduled arrival time.
const CollisionThreshold = 0.75

// Grid is the static walkability layer a search runs over. Walkable[y][x]
// mirrors the object-occupancy convention of the map document: true
// means passable.
type Grid struct {
	Width    int
	Height   int
	Walkable [][]bool
}

// NewGrid builds an all-walkable grid of the given size.
func NewGrid(width, height int) *Grid {
	rows := make([][]bool, height)
	for y := range rows {
		row := make([]bool, width)
		for x := range row {
			row[x] = true
		}
		rows[y] = row
	}
	return &Grid{Width: width, Height: height, Walkable: rows}
}

// Block marks (x, y) as non-walkable. Out-of-bounds calls are ignored.
func (g *Grid) Block(x, y int) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Walkable[y][x] = false
}

// InBounds reports whether the integer point lies on the grid.
func (g *Grid) InBounds(p geom.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width && p.Y < g.Height
}

// IsWalkable reports whether the integer point is both in bounds and not
// blocked by the object layer.
func (g *Grid) IsWalkable(p geom.Point) bool {
	if !g.InBounds(p) {
		return false
	}
	return g.Walkable[p.Y][p.X]
}

// DynamicObstacle is anything the pathfinder must route around at a
// specific simulated time — in practice, another player's planned path.
type DynamicObstacle interface {
	PositionAt(t float64) geom.Vector
}

// StaticObstacle is a DynamicObstacle that never moves, useful for tests
// and for players with no current path.
type StaticObstacle struct {
	Position geom.Vector
}

func (s StaticObstacle) PositionAt(float64) geom.Vector {
	return s.Position
}
