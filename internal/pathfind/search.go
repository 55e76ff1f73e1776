package pathfind

import (
	"errors"
	"fmt"
	"math"

	"github.com/wricardo/aitown/internal/geom"
)

// ErrNoRoute is returned when the start itself is the best candidate
// ever explored: no step away from the start avoided every obstacle.
var ErrNoRoute = errors.New("pathfind: no route")

// Result is the outcome of a successful search. NewDestination is nil
// when the path actually reaches the requested destination; otherwise
// it names the closest reachable point the search substituted in.
type Result struct {
	Path           geom.Path
	NewDestination *geom.Point
}

type searchNode struct {
	pos    geom.Vector
	g      float64
	h      float64
	time   float64
	parent *searchNode
}

func (n *searchNode) f() float64 { return n.g + n.h }

func posKey(p geom.Vector) string {
	return fmt.Sprintf("%.6f,%.6f", p.X, p.Y)
}

func isAligned(v float64) bool {
	return v == math.Trunc(v)
}

// neighbours generates the candidate next positions from p, per the
// off-grid snapping rule: an axis that isn't grid-aligned only offers
// its two adjacent integer points (no diagonal combination), and a
// fully aligned position offers the four 4-connected neighbours.
func neighbours(p geom.Vector) []geom.Vector {
	xAligned := isAligned(p.X)
	yAligned := isAligned(p.Y)

	if !xAligned || !yAligned {
		var out []geom.Vector
		if !xAligned {
			out = append(out,
				geom.Vector{X: math.Floor(p.X), Y: p.Y},
				geom.Vector{X: math.Ceil(p.X), Y: p.Y},
			)
		}
		if !yAligned {
			out = append(out,
				geom.Vector{X: p.X, Y: math.Floor(p.Y)},
				geom.Vector{X: p.X, Y: math.Ceil(p.Y)},
			)
		}
		return out
	}

	return []geom.Vector{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}

func toPoint(v geom.Vector) geom.Point {
	return geom.Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

func manhattanToDest(v geom.Vector, dest geom.Point) float64 {
	return math.Abs(v.X-float64(dest.X)) + math.Abs(v.Y-float64(dest.Y))
}

// blocked reports whether pos at arrivalTime is out of bounds, on a
// non-walkable tile, or within CollisionThreshold of any obstacle's
// position at that same arrivalTime.
func blocked(grid *Grid, pos geom.Vector, arrivalTime float64, obstacles []DynamicObstacle) bool {
	if !grid.IsWalkable(toPoint(pos)) {
		return true
	}
	for _, obstacle := range obstacles {
		if pos.Distance(obstacle.PositionAt(arrivalTime)) < CollisionThreshold {
			return true
		}
	}
	return false
}

// FindPath searches grid from start (at startTime, possibly off-grid)
// to dest, walking at speed tiles per millisecond. obstacles are other
// players' planned positions, checked at each candidate's own scheduled
// arrival time rather than at the query time.
//
// If the open set empties before dest is reached, the search falls back
// to the explored candidate with the smallest Manhattan distance to
// dest and reports it via Result.NewDestination. If that candidate is
// the start itself, no progress was possible and FindPath returns
// ErrNoRoute.
func FindPath(grid *Grid, start geom.Vector, startTime float64, dest geom.Point, speed float64) (*Result, error) {
	return findPath(grid, start, startTime, dest, speed, nil)
}

// FindPathAvoiding is FindPath with dynamic obstacles to route around.
func FindPathAvoiding(grid *Grid, start geom.Vector, startTime float64, dest geom.Point, speed float64, obstacles []DynamicObstacle) (*Result, error) {
	return findPath(grid, start, startTime, dest, speed, obstacles)
}

func findPath(grid *Grid, start geom.Vector, startTime float64, dest geom.Point, speed float64, obstacles []DynamicObstacle) (*Result, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("pathfind: speed must be positive, got %v", speed)
	}

	startNode := &searchNode{pos: start, g: 0, h: manhattanToDest(start, dest), time: startTime}

	open := geom.NewHeap(func(a, b *searchNode) bool { return a.f() < b.f() })
	open.Push(startNode)

	minDistances := map[string]float64{posKey(start): 0}
	closed := map[string]*searchNode{}
	var closedOrder []*searchNode

	for open.Len() > 0 {
		current, _ := open.Pop()
		key := posKey(current.pos)
		if existing, ok := closed[key]; ok && existing.g <= current.g {
			continue // stale heap entry for an already-settled, cheaper node
		}
		closed[key] = current
		closedOrder = append(closedOrder, current)

		destPoint := toPoint(current.pos)
		if destPoint == dest && isAligned(current.pos.X) && isAligned(current.pos.Y) {
			return &Result{Path: reconstruct(current)}, nil
		}

		for _, next := range neighbours(current.pos) {
			segmentLength := current.pos.Distance(next)
			newCost := current.g + segmentLength
			nextTime := startTime + newCost/speed

			if blocked(grid, next, nextTime, obstacles) {
				continue
			}

			nk := posKey(next)
			if prevBest, ok := minDistances[nk]; ok && prevBest <= newCost {
				continue // an existing candidate is no worse; discard
			}
			minDistances[nk] = newCost

			open.Push(&searchNode{
				pos:    next,
				g:      newCost,
				h:      manhattanToDest(next, dest),
				time:   nextTime,
				parent: current,
			})
		}
	}

	// Open set emptied without reaching dest: fall back to the closest
	// explored candidate.
	best := startNode
	bestDist := manhattanToDest(startNode.pos, dest)
	for _, n := range closedOrder {
		if d := manhattanToDest(n.pos, dest); d < bestDist {
			best = n
			bestDist = d
		}
	}
	if best == startNode {
		return nil, ErrNoRoute
	}
	newDest := toPoint(best.pos)
	return &Result{Path: reconstruct(best), NewDestination: &newDest}, nil
}

func reconstruct(end *searchNode) geom.Path {
	var chain []*searchNode
	for n := end; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	path := make(geom.Path, len(chain))
	for i, n := range chain {
		path[len(chain)-1-i] = geom.PathPoint{Position: n.pos, T: n.time}
	}
	return path
}

// PathLength sums the Euclidean lengths of every segment in path.
func PathLength(path geom.Path) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].Position.Distance(path[i].Position)
	}
	return total
}
