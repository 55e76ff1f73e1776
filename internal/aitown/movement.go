package aitown

import (
	"context"

	"github.com/wricardo/aitown/internal/geom"
	"github.com/wricardo/aitown/internal/pathfind"
)

// Advance implements engine.World: it moves every active player along
// its current path by one tick, recomputes the derived facing/velocity
// fields, enforces collisions, and progresses conversation lifecycles,
// in order: movement before conversation progression.
func (w *World) Advance(ctx context.Context, engineID string, now int64) error {
	tx, err := w.loadTx(ctx, engineID)
	if err != nil {
		return err
	}

	if err := tx.advanceMovement(now); err != nil {
		return err
	}
	tx.enforceCollisions(now)
	if err := tx.advanceConversations(now, w.log); err != nil {
		return err
	}
	return nil
}

// advanceMovement walks every active player's path to `now`, writing
// the derived x/y/dx/dy/velocity fields through recordLocation so the
// historical sampler sees every tick's delta.
func (tx *txState) advanceMovement(now int64) error {
	for _, p := range tx.players.Filter(func(string, Player) bool { return true }) {
		if p.LocationID == "" {
			continue
		}
		loc, err := tx.locations.Lookup(p.LocationID)
		if err != nil {
			continue
		}
		if len(loc.Path) == 0 {
			continue
		}
		sample := geom.PathPosition(loc.Path, float64(now))
		if err := tx.recordLocation(p.LocationID, now, func(l Location) Location {
			l.X = sample.Position.X
			l.Y = sample.Position.Y
			l.DX = sample.Facing.X
			l.DY = sample.Facing.Y
			l.Velocity = sample.Velocity
			if !geom.PathOverlaps(l.Path, float64(now)) {
				l.Path = nil // arrived: drop the spent path
			}
			return l
		}); err != nil {
			return err
		}
	}
	return nil
}

// enforceCollisions implements the "stall and mark for replan" rule: if
// two active players would occupy the same tile (within
// pathfind.CollisionThreshold) at `now`, both paths are cleared so the
// agent loop replans rather than letting them overlap.
func (tx *txState) enforceCollisions(now int64) {
	active := tx.players.Filter(func(string, Player) bool { return true })
	positions := make(map[string]geom.Vector, len(active))
	for _, p := range active {
		if p.LocationID == "" {
			continue
		}
		loc, err := tx.locations.Lookup(p.LocationID)
		if err != nil {
			continue
		}
		positions[p.LocationID] = loc.Position()
	}
	for id, pos := range positions {
		for otherID, otherPos := range positions {
			if id == otherID {
				continue
			}
			if pos.Distance(otherPos) < pathfind.CollisionThreshold {
				_ = tx.recordLocation(id, now, func(l Location) Location {
					if len(l.Path) > 0 {
						l.Path = nil
						l.NeedsReplan = true
					}
					return l
				})
			}
		}
	}
}
