package clientsync

import "testing"

func TestHistoricalServerTimeRateControlScenario(t *testing.T) {
	s := New()
	if err := s.Ingest(0, 1000); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	first, _, err := s.HistoricalServerTime(0)
	if err != nil {
		t.Fatalf("HistoricalServerTime: %v", err)
	}
	if first != 0 {
		t.Fatalf("expected initial serverTs 0, got %d", first)
	}

	if err := s.Ingest(1000, 2000); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	serverTs, bufferHealth, err := s.HistoricalServerTime(1000)
	if err != nil {
		t.Fatalf("HistoricalServerTime: %v", err)
	}
	if serverTs != 1200 {
		t.Fatalf("expected serverTs 1200 per the rate-control scenario, got %d", serverTs)
	}
	if bufferHealth != 2000 {
		t.Fatalf("expected bufferHealth 2000, got %d", bufferHealth)
	}
}

func TestIngestRejectsOutOfOrder(t *testing.T) {
	s := New()
	if err := s.Ingest(1000, 2000); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := s.Ingest(500, 1500); err != ErrOutOfOrder {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
}

func TestIngestExtendsSameStartInterval(t *testing.T) {
	s := New()
	if err := s.Ingest(0, 1000); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := s.Ingest(0, 1500); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	got := s.Intervals()
	if len(got) != 1 || got[0].End != 1500 {
		t.Fatalf("expected extended single interval, got %+v", got)
	}
}

func TestHistoricalServerTimeNeverExceedsLastServer(t *testing.T) {
	s := New()
	_ = s.Ingest(0, 1000)
	_, _, _ = s.HistoricalServerTime(0)

	// A large client-frame jump should still clamp at lastServer.
	serverTs, _, err := s.HistoricalServerTime(100000)
	if err != nil {
		t.Fatalf("HistoricalServerTime: %v", err)
	}
	if serverTs > 1000 {
		t.Fatalf("expected serverTs clamped to lastServer 1000, got %d", serverTs)
	}
}

func TestHistoricalServerTimeNeverLagsBeyondHardClamp(t *testing.T) {
	s := New()
	_ = s.Ingest(0, 1000)
	_, _, _ = s.HistoricalServerTime(0)
	_ = s.Ingest(1000, 5000)

	serverTs, _, err := s.HistoricalServerTime(0) // clientNow hasn't advanced
	if err != nil {
		t.Fatalf("HistoricalServerTime: %v", err)
	}
	if serverTs < 5000-HardClampMs {
		t.Fatalf("expected serverTs >= lastServer-%d, got %d", HardClampMs, serverTs)
	}
}

func TestHistoricalServerTimeMonotonicForFixedIntervals(t *testing.T) {
	s := New()
	_ = s.Ingest(0, 10000)

	prev := int64(-1)
	for clientNow := int64(0); clientNow <= 10000; clientNow += 250 {
		ts, _, err := s.HistoricalServerTime(clientNow)
		if err != nil {
			t.Fatalf("HistoricalServerTime: %v", err)
		}
		if ts < prev {
			t.Fatalf("serverTs went backwards: %d -> %d at clientNow=%d", prev, ts, clientNow)
		}
		prev = ts
	}
}

func TestHistoricalServerTimeSnapsForwardAcrossGap(t *testing.T) {
	s := New()
	_ = s.Ingest(0, 100)
	_, _, _ = s.HistoricalServerTime(0)
	_ = s.Ingest(5000, 5100)

	serverTs, _, err := s.HistoricalServerTime(0)
	if err != nil {
		t.Fatalf("HistoricalServerTime: %v", err)
	}
	if serverTs < 5000-HardClampMs {
		t.Fatalf("expected serverTs within hard clamp of new lastServer, got %d", serverTs)
	}
}

func TestHistoricalServerTimeErrorsWithNoIntervals(t *testing.T) {
	s := New()
	if _, _, err := s.HistoricalServerTime(0); err == nil {
		t.Fatal("expected an error with no intervals observed")
	}
}
