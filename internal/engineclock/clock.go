// Package engineclock supplies the engine's clock() collaborator
// ("let now = clock()" in the step loop). Production code uses the
// real wall clock; tests inject a quartz.Mock for deterministic control
// over tick timing, exactly as lox-pokerforbots' test harness does for
// its own server loop.
package engineclock

import (
	"github.com/coder/quartz"
)

// Clock returns the current time as milliseconds since the Unix epoch,
// the unit every timestamp in the engine (receivedTs, lastStepTs,
// currentTime, scheduledSelfTs) is expressed in.
type Clock struct {
	underlying quartz.Clock
}

// New wraps a quartz.Clock (quartz.NewReal() in production,
// quartz.NewMock(tb) in tests).
func New(c quartz.Clock) *Clock {
	return &Clock{underlying: c}
}

// NewReal returns a Clock backed by the real wall clock.
func NewReal() *Clock {
	return New(quartz.NewReal())
}

// NowMs returns the current time in milliseconds.
func (c *Clock) NowMs() int64 {
	return c.underlying.Now().UnixMilli()
}

// Underlying exposes the wrapped quartz.Clock for callers (e.g. a
// quartz.Mock) that need direct control in tests.
func (c *Clock) Underlying() quartz.Clock {
	return c.underlying
}
