package interval

import (
	"time"
)

const (
	defaultUnits = 100
	minUnitMs    = int64(1000)
)

// Stats is a snapshot of request counts and durations over a trailing window.
// Durations are in milliseconds, -1 means no data.
type Stats struct {
	Interval          int64   `json:"interval"` // window length ms, 0 = unbounded
	Count             int64   `json:"count"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	MinDuration       int64   `json:"minDuration"`
	MaxDuration       int64   `json:"maxDuration"`
	AvgDuration       int64   `json:"avgDuration"`
}

func empty(interval int64) Stats {
	return Stats{
		Interval:    interval,
		MinDuration: -1,
		MaxDuration: -1,
		AvgDuration: -1,
	}
}

type unit struct {
	count    int64
	duration int64
	min      int64
	max      int64
}

var emptyUnit = unit{min: -1, max: -1}

func (u *unit) add(d int64) {
	u.count++
	u.duration += d
	if u.min == -1 || d < u.min {
		u.min = d
	}
	if d > u.max {
		u.max = d
	}
}

// Builder accumulates request durations into a ring of fixed-width units.
// It is not safe for concurrent use; the statistics processor owns it.
type Builder struct {
	interval int64
	unit     int64
	units    int
	start    int64

	ring   []unit
	head   int
	filled int

	totalCount    int64
	totalDuration int64

	cur         unit
	lastUnitEnd int64
}

// NewBuilder creates a builder for the given window. A zero interval keeps
// all-time statistics.
func NewBuilder(interval time.Duration, start time.Time) *Builder {
	b := &Builder{
		interval: interval.Milliseconds(),
		start:    start.UnixMilli(),
		cur:      emptyUnit,
	}
	if b.interval <= 0 {
		b.interval = 0
		return b
	}
	b.unit, b.units = unitFor(b.interval)
	b.ring = make([]unit, b.units)
	b.lastUnitEnd = b.start + b.unit
	return b
}

func unitFor(interval int64) (int64, int) {
	n := defaultUnits
	u := interval / int64(n)
	if u < minUnitMs {
		u = minUnitMs
		n = int(interval / u)
		if n == 0 {
			return interval, 1
		}
	}
	return u, n
}

func (b *Builder) Interval() time.Duration {
	return time.Duration(b.interval) * time.Millisecond
}

func (b *Builder) Unit() time.Duration {
	return time.Duration(b.unit) * time.Millisecond
}

func (b *Builder) Units() int {
	return b.units
}

// AddRequest records a request that started at the given time.
func (b *Builder) AddRequest(at time.Time, d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	b.closeUnits(at.UnixMilli())
	b.cur.add(ms)
}

func (b *Builder) closeUnits(now int64) {
	if b.interval == 0 {
		return
	}
	if now-b.lastUnitEnd > b.interval {
		b.reset(now)
		return
	}
	for now >= b.lastUnitEnd {
		b.closeUnit()
		b.lastUnitEnd += b.unit
	}
}

func (b *Builder) closeUnit() {
	if b.filled == b.units {
		old := b.ring[b.head]
		b.totalCount -= old.count
		b.totalDuration -= old.duration
		b.ring[b.head] = b.cur
		b.head = (b.head + 1) % b.units
	} else {
		b.ring[(b.head+b.filled)%b.units] = b.cur
		b.filled++
	}
	b.totalCount += b.cur.count
	b.totalDuration += b.cur.duration
	b.cur = emptyUnit
}

// reset replaces the whole ring with empty units. Used when the gap since
// the last closed unit exceeds the window, so nothing in the ring is live.
func (b *Builder) reset(now int64) {
	for i := range b.ring {
		b.ring[i] = emptyUnit
	}
	b.head = 0
	b.filled = b.units
	b.totalCount = 0
	b.totalDuration = 0
	b.cur = emptyUnit
	skipped := (now-b.lastUnitEnd)/b.unit + 1
	b.lastUnitEnd += skipped * b.unit
}

// Build closes the units that ended by now and returns a snapshot over the
// closed units. The open unit is not reported.
func (b *Builder) Build(now time.Time) Stats {
	ms := now.UnixMilli()
	if b.interval == 0 {
		return b.buildUnbounded(ms)
	}
	b.closeUnits(ms)

	s := empty(b.interval)
	s.Count = b.totalCount
	if b.filled > 0 {
		secs := float64(int64(b.filled)*b.unit) / 1000
		s.RequestsPerSecond = float64(b.totalCount) / secs
	}
	if b.totalCount == 0 {
		return s
	}
	s.AvgDuration = b.totalDuration / b.totalCount
	for i := 0; i < b.filled; i++ {
		u := b.ring[(b.head+i)%b.units]
		if u.count == 0 {
			continue
		}
		if s.MinDuration == -1 || u.min < s.MinDuration {
			s.MinDuration = u.min
		}
		if u.max > s.MaxDuration {
			s.MaxDuration = u.max
		}
	}
	return s
}

func (b *Builder) buildUnbounded(now int64) Stats {
	s := empty(0)
	s.Count = b.cur.count
	if elapsed := now - b.start; elapsed > 0 {
		s.RequestsPerSecond = float64(b.cur.count) * 1000 / float64(elapsed)
	}
	if b.cur.count > 0 {
		s.MinDuration = b.cur.min
		s.MaxDuration = b.cur.max
		s.AvgDuration = b.cur.duration / b.cur.count
	}
	return s
}
