package geom

import (
	"math"
	"testing"
)

func straightPath() Path {
	return Path{
		{Position: NewVector(0, 0), T: 0},
		{Position: NewVector(10, 0), T: 1000},
	}
}

func TestPathPositionInterpolatesMidSegment(t *testing.T) {
	p := straightPath()
	s := PathPosition(p, 500)
	if math.Abs(s.Position.X-5) > 1e-9 || s.Position.Y != 0 {
		t.Errorf("expected midpoint (5,0), got %v", s.Position)
	}
	if math.Abs(s.Velocity-10) > 1e-9 {
		t.Errorf("expected velocity 10 units/s, got %f", s.Velocity)
	}
}

func TestPathPositionClampsBeforeStart(t *testing.T) {
	p := straightPath()
	s := PathPosition(p, -100)
	if s.Position != p[0].Position {
		t.Errorf("expected clamp to start, got %v", s.Position)
	}
	if s.Velocity != 0 {
		t.Errorf("expected zero velocity before start, got %f", s.Velocity)
	}
}

func TestPathPositionClampsAfterEnd(t *testing.T) {
	p := straightPath()
	s := PathPosition(p, 5000)
	if s.Position != p[len(p)-1].Position {
		t.Errorf("expected clamp to end, got %v", s.Position)
	}
	if s.Velocity != 0 {
		t.Errorf("expected zero velocity after end, got %f", s.Velocity)
	}
}

func TestPathOverlaps(t *testing.T) {
	p := straightPath()
	if !PathOverlaps(p, 500) {
		t.Error("expected overlap within path span")
	}
	if PathOverlaps(p, -1) || PathOverlaps(p, 1001) {
		t.Error("expected no overlap outside path span")
	}
}
