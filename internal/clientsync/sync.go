package clientsync

import "errors"

// ErrOutOfOrder is returned when an ingested status interval would
// overlap or precede the already-recorded timeline: out-of-order
// status is treated as fatal, not silently corrected.
var ErrOutOfOrder = errors.New("clientsync: status interval out of order")

// HardClampMs bounds how far the reconstructed server time may lag
// behind the latest observed server timestamp.
const HardClampMs = 1250

// Interval is one observed [startTs, endTs] window of server time.
type Interval struct {
	Start int64
	End   int64
}

// Sync tracks the server interval timeline and the last remembered
// (clientNow, serverTs) sample used to advance it.
type Sync struct {
	intervals []Interval

	havePrev   bool
	prevClient int64
	prevServer float64
}

// New creates an empty Sync.
func New() *Sync {
	return &Sync{}
}

// Ingest records one observed server status interval. A new interval
// sharing the last interval's start extends its end (the engine is
// still advancing through the same step); otherwise it is pushed as a
// new, later interval. Any interval that would overlap or precede the
// timeline already recorded is rejected as out of order.
func (s *Sync) Ingest(start, end int64) error {
	if end < start {
		return ErrOutOfOrder
	}
	if len(s.intervals) == 0 {
		s.intervals = append(s.intervals, Interval{Start: start, End: end})
		return nil
	}
	last := &s.intervals[len(s.intervals)-1]
	if start == last.Start {
		if end < last.End {
			return ErrOutOfOrder
		}
		last.End = end
		return nil
	}
	if start < last.End {
		return ErrOutOfOrder
	}
	s.intervals = append(s.intervals, Interval{Start: start, End: end})
	return nil
}

// Intervals returns the currently retained interval timeline, most
// recent last.
func (s *Sync) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// HistoricalServerTime advances the reconstructed server clock for one
// animation frame at client wallclock clientNow, returning the
// reconstructed server timestamp and the current buffer health
// (lastServer - prevServer, exposed for UI).
func (s *Sync) HistoricalServerTime(clientNow int64) (serverTs int64, bufferHealth int64, err error) {
	if len(s.intervals) == 0 {
		return 0, 0, errors.New("clientsync: no intervals observed yet")
	}

	if !s.havePrev {
		s.prevClient = clientNow
		s.prevServer = float64(s.intervals[0].Start)
		s.havePrev = true
	}

	lastServer := s.intervals[len(s.intervals)-1].End
	buffer := float64(lastServer) - s.prevServer
	bufferHealth = int64(buffer)

	rate := 1.0
	switch {
	case buffer < 100:
		rate = 0.8
	case buffer > 1000:
		rate = 1.2
	}

	raw := s.prevServer + float64(clientNow-s.prevClient)*rate
	floor := float64(lastServer - HardClampMs)
	if raw < floor {
		raw = floor
	}
	if raw > float64(lastServer) {
		raw = float64(lastServer)
	}

	clamped, idx := clampIntoIntervals(int64(raw), s.intervals)
	s.trimTo(idx)

	s.prevClient = clientNow
	s.prevServer = float64(clamped)
	return clamped, bufferHealth, nil
}

// clampIntoIntervals clamps ts into the interval timeline: if it falls
// inside an interval it's returned unchanged; if it falls in a gap
// between two intervals it snaps forward to the next interval's start;
// outside the timeline entirely it clamps to the nearest boundary.
func clampIntoIntervals(ts int64, intervals []Interval) (int64, int) {
	if ts < intervals[0].Start {
		return intervals[0].Start, 0
	}
	for i, iv := range intervals {
		if ts >= iv.Start && ts <= iv.End {
			return ts, i
		}
		if i+1 < len(intervals) && ts > iv.End && ts < intervals[i+1].Start {
			return intervals[i+1].Start, i + 1
		}
	}
	last := len(intervals) - 1
	return intervals[last].End, last
}

// trimTo keeps the enclosing interval at idx, its predecessor and any
// later intervals, discarding everything older now that it can no longer
// be reached.
func (s *Sync) trimTo(idx int) {
	start := idx - 1
	if start <= 0 {
		return // nothing to drop
	}
	s.intervals = append([]Interval(nil), s.intervals[start:]...)
}
