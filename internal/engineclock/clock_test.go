package engineclock

import (
	"testing"
	"time"

	"github.com/coder/quartz"
)

func TestNowMsReflectsMockClock(t *testing.T) {
	mock := quartz.NewMock(t)
	start := time.UnixMilli(1_700_000_000_000)
	mock.Set(start)

	c := New(mock)
	if got := c.NowMs(); got != start.UnixMilli() {
		t.Fatalf("expected %d, got %d", start.UnixMilli(), got)
	}

	mock.Set(start.Add(250 * time.Millisecond))
	if got := c.NowMs(); got != start.UnixMilli()+250 {
		t.Errorf("expected clock to advance by 250ms, got delta %d", got-start.UnixMilli())
	}
}

func TestNewRealReturnsMonotonicMillis(t *testing.T) {
	c := NewReal()
	a := c.NowMs()
	b := c.NowMs()
	if b < a {
		t.Errorf("expected non-decreasing wall clock, got %d then %d", a, b)
	}
}
