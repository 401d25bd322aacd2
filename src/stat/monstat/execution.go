package monstat

import (
	"fmt"
	"time"

	"github.com/jom-io/gorig-mon/src/stat/interval"
)

// DefaultWindows are the trailing windows tracked for every execution
// statistic. Zero is the unbounded, all-time window.
var DefaultWindows = []time.Duration{
	0,
	time.Second,
	15 * time.Second,
	time.Minute,
	15 * time.Minute,
	time.Hour,
}

// ExecutionStatistics holds execution counts and durations of some target
// (a request, a resource, a handler) per trailing window, keyed by window ms.
type ExecutionStatistics struct {
	LastStartTime *time.Time               `json:"lastStartTime"`
	Windows       map[int64]interval.Stats `json:"windows"`
}

// Window returns the statistics for the given window length.
func (s ExecutionStatistics) Window(d time.Duration) (interval.Stats, bool) {
	st, ok := s.Windows[d.Milliseconds()]
	return st, ok
}

// WindowName renders a window key as "all", "15s", "1m", "1h" and so on.
func WindowName(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	switch {
	case d == 0:
		return "all"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return d.String()
	}
}

type executionBuilder struct {
	lastStart time.Time
	windows   []*interval.Builder
}

func newExecutionBuilder(windows []time.Duration, start time.Time) *executionBuilder {
	b := &executionBuilder{windows: make([]*interval.Builder, 0, len(windows))}
	for _, w := range windows {
		b.windows = append(b.windows, interval.NewBuilder(w, start))
	}
	return b
}

func (b *executionBuilder) addExecution(start time.Time, d time.Duration) {
	if start.After(b.lastStart) {
		b.lastStart = start
	}
	for _, w := range b.windows {
		w.AddRequest(start, d)
	}
}

func (b *executionBuilder) build(now time.Time) ExecutionStatistics {
	s := ExecutionStatistics{Windows: make(map[int64]interval.Stats, len(b.windows))}
	if !b.lastStart.IsZero() {
		last := b.lastStart
		s.LastStartTime = &last
	}
	for _, w := range b.windows {
		s.Windows[w.Interval().Milliseconds()] = w.Build(now)
	}
	return s
}
