package geom

// PathPoint is one scheduled waypoint: a position reached at a given
// simulated time, in milliseconds since the engine's epoch.
type PathPoint struct {
	Position Vector  `json:"position"`
	T        float64 `json:"t"`
}

// Path is a strictly time-increasing sequence of waypoints: for any
// in-progress path, path[0].t <= now <= path[-1].t.
type Path []PathPoint

// Sample is the interpolated state of an entity following a Path.
type Sample struct {
	Position Vector  `json:"position"`
	Facing   Vector  `json:"facing"`
	Velocity float64 `json:"velocity"`
}

// PathPosition linearly interpolates path at time t, clamping to the
// first or last waypoint (with zero velocity) when t falls outside the
// path's time span.
func PathPosition(path Path, t float64) Sample {
	if len(path) == 0 {
		return Sample{}
	}
	if len(path) == 1 || t <= path[0].T {
		return Sample{Position: path[0].Position, Facing: defaultFacing(path), Velocity: 0}
	}
	last := path[len(path)-1]
	if t >= last.T {
		return Sample{Position: last.Position, Facing: segmentFacing(path[len(path)-2], last), Velocity: 0}
	}

	for i := 0; i < len(path)-1; i++ {
		a, b := path[i], path[i+1]
		if t >= a.T && t <= b.T {
			dt := b.T - a.T
			if dt <= 0 {
				return Sample{Position: a.Position, Facing: defaultFacing(path), Velocity: 0}
			}
			frac := (t - a.T) / dt
			pos := a.Position.Add(b.Position.Sub(a.Position).Scale(frac))
			disp := b.Position.Sub(a.Position)
			facing, ok := disp.Normalize()
			if !ok {
				facing = defaultFacing(path)
			}
			velocity := disp.Length() / (dt / 1000)
			return Sample{Position: pos, Facing: facing, Velocity: velocity}
		}
	}
	return Sample{Position: last.Position, Facing: defaultFacing(path), Velocity: 0}
}

// PathOverlaps reports whether t falls within the path's time span, i.e.
// whether the path is still "in progress" at t.
func PathOverlaps(path Path, t float64) bool {
	if len(path) == 0 {
		return false
	}
	return t >= path[0].T && t <= path[len(path)-1].T
}

func segmentFacing(a, b PathPoint) Vector {
	if f, ok := b.Position.Sub(a.Position).Normalize(); ok {
		return f
	}
	return defaultFacing(nil)
}

func defaultFacing(_ Path) Vector {
	return Vector{X: 1, Y: 0}
}
