package interval

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(ms int64) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestUnitFor(t *testing.T) {
	cases := []struct {
		interval time.Duration
		unit     time.Duration
		units    int
	}{
		{time.Hour, 36 * time.Second, 100},
		{15 * time.Minute, 9 * time.Second, 100},
		{time.Minute, time.Second, 60},
		{15 * time.Second, time.Second, 15},
		{time.Second, time.Second, 1},
		{500 * time.Millisecond, 500 * time.Millisecond, 1},
	}
	for _, c := range cases {
		b := NewBuilder(c.interval, t0)
		if b.Unit() != c.unit || b.Units() != c.units {
			t.Fatalf("interval %v: got unit=%v units=%d, want unit=%v units=%d", c.interval, b.Unit(), b.Units(), c.unit, c.units)
		}
		if b.Interval() != c.interval {
			t.Fatalf("interval %v: got %v", c.interval, b.Interval())
		}
	}
}

func TestSentinelsBeforeFirstUnitCloses(t *testing.T) {
	b := NewBuilder(15*time.Second, t0)

	s := b.Build(at(0))
	if s.Count != 0 || s.RequestsPerSecond != 0 || s.MinDuration != -1 || s.MaxDuration != -1 || s.AvgDuration != -1 {
		t.Fatalf("unexpected stats for empty builder: %+v", s)
	}

	b.AddRequest(at(100), 10*time.Millisecond)
	b.AddRequest(at(200), 30*time.Millisecond)
	s = b.Build(at(999))
	if s.Count != 0 || s.MinDuration != -1 || s.MaxDuration != -1 {
		t.Fatalf("open unit must not be reported: %+v", s)
	}

	s = b.Build(at(1000))
	if s.Count != 2 || s.MinDuration != 10 || s.MaxDuration != 30 || s.AvgDuration != 20 {
		t.Fatalf("unexpected stats after first unit closed: %+v", s)
	}
	if s.Interval != 15000 {
		t.Fatalf("unexpected interval: %d", s.Interval)
	}
}

func TestRequestsPerSecondUsesClosedUnits(t *testing.T) {
	b := NewBuilder(15*time.Second, t0)
	for i := 0; i < 30; i++ {
		b.AddRequest(at(int64(i*10)), time.Millisecond)
	}

	s := b.Build(at(1000))
	if math.Abs(s.RequestsPerSecond-30) > 1e-9 {
		t.Fatalf("expected 30 req/s over one closed unit, got %v", s.RequestsPerSecond)
	}

	s = b.Build(at(15000))
	if math.Abs(s.RequestsPerSecond-2) > 1e-9 {
		t.Fatalf("expected 2 req/s over the full window, got %v", s.RequestsPerSecond)
	}
}

func TestCountEqualsLiveUnits(t *testing.T) {
	b := NewBuilder(5*time.Second, t0)
	for ms := int64(0); ms < 12000; ms += 250 {
		b.AddRequest(at(ms), time.Duration(ms%700)*time.Millisecond)

		s := b.Build(at(ms))
		var sum int64
		for i := 0; i < b.filled; i++ {
			sum += b.ring[(b.head+i)%b.units].count
		}
		if s.Count != sum {
			t.Fatalf("at %dms: count %d != sum of live units %d", ms, s.Count, sum)
		}
		if b.filled > b.units {
			t.Fatalf("ring overflow: filled=%d units=%d", b.filled, b.units)
		}
	}

	// 4 requests per unit, 5 units live.
	s := b.Build(at(12000))
	if s.Count != 20 {
		t.Fatalf("expected 20 requests in window, got %d", s.Count)
	}
}

func TestMinMaxTightenAndWiden(t *testing.T) {
	b := NewBuilder(3*time.Second, t0)
	adds := map[int64]time.Duration{
		0:    50 * time.Millisecond,
		1000: 10 * time.Millisecond,
		2000: 100 * time.Millisecond,
	}

	steps := []struct {
		now      int64
		min, max int64
		count    int64
	}{
		{1000, 50, 50, 1},
		{2000, 10, 50, 2},
		{3000, 10, 100, 3},
		{4000, 10, 100, 2},
		{5000, 100, 100, 1},
		{6000, -1, -1, 0},
	}
	for _, st := range steps {
		if d, ok := adds[st.now-1000]; ok {
			b.AddRequest(at(st.now-1000), d)
		}
		s := b.Build(at(st.now))
		if s.MinDuration != st.min || s.MaxDuration != st.max || s.Count != st.count {
			t.Fatalf("at %dms: got min=%d max=%d count=%d, want min=%d max=%d count=%d",
				st.now, s.MinDuration, s.MaxDuration, s.Count, st.min, st.max, st.count)
		}
	}
}

func TestGapResetsRing(t *testing.T) {
	b := NewBuilder(3*time.Second, t0)
	b.AddRequest(at(0), 40*time.Millisecond)
	b.AddRequest(at(1500), 60*time.Millisecond)
	if s := b.Build(at(2000)); s.Count != 2 {
		t.Fatalf("expected 2 requests before gap, got %d", s.Count)
	}

	b.AddRequest(at(60500), 5*time.Millisecond)
	if b.filled != b.units {
		t.Fatalf("expected ring to be refilled with empty units, filled=%d", b.filled)
	}
	for i, u := range b.ring {
		if u.count != 0 || u.min != -1 || u.max != -1 {
			t.Fatalf("unit %d not empty after reset: %+v", i, u)
		}
	}

	s := b.Build(at(60900))
	if s.Count != 0 || s.MinDuration != -1 || s.MaxDuration != -1 || s.RequestsPerSecond != 0 {
		t.Fatalf("stale data survived reset: %+v", s)
	}

	s = b.Build(at(61000))
	if s.Count != 1 || s.MinDuration != 5 || s.MaxDuration != 5 {
		t.Fatalf("unexpected stats after reset: %+v", s)
	}
	if math.Abs(s.RequestsPerSecond-1.0/3.0) > 1e-9 {
		t.Fatalf("rate should use the full ring after reset, got %v", s.RequestsPerSecond)
	}
}

func TestBuildKeepsAccumulating(t *testing.T) {
	b := NewBuilder(time.Minute, t0)
	b.AddRequest(at(0), 20*time.Millisecond)
	first := b.Build(at(1000))
	b.AddRequest(at(1200), 40*time.Millisecond)
	second := b.Build(at(2000))

	if first.Count != 1 {
		t.Fatalf("first snapshot changed: %+v", first)
	}
	if second.Count != 2 || second.AvgDuration != 30 {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}
}

func TestUnboundedWindow(t *testing.T) {
	b := NewBuilder(0, t0)
	if s := b.Build(at(0)); s.Count != 0 || s.RequestsPerSecond != 0 || s.MinDuration != -1 {
		t.Fatalf("unexpected empty unbounded stats: %+v", s)
	}

	b.AddRequest(at(100), 8*time.Millisecond)
	b.AddRequest(at(200), 2*time.Millisecond)
	b.AddRequest(at(300), 5*time.Millisecond)
	s := b.Build(at(2000))
	if s.Count != 3 || s.MinDuration != 2 || s.MaxDuration != 8 || s.AvgDuration != 5 {
		t.Fatalf("unexpected unbounded stats: %+v", s)
	}
	if math.Abs(s.RequestsPerSecond-1.5) > 1e-9 {
		t.Fatalf("expected 1.5 req/s, got %v", s.RequestsPerSecond)
	}
	if s.Interval != 0 {
		t.Fatalf("unbounded interval must be 0, got %d", s.Interval)
	}
}
