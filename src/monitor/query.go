package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/jom-io/gorig-mon/src/stat/interval"
	"github.com/jom-io/gorig-mon/src/stat/monstat"
	"github.com/jom-io/gorig/utils/errors"
	"github.com/jom-io/gorig/utils/logger"
)

// ResourceSummary is one row of the URI or class listing.
type ResourceSummary struct {
	Name    string         `json:"name"`
	Methods int            `json:"methods"`
	Window  string         `json:"window"`
	Stats   interval.Stats `json:"stats"`
}

func (m *Monitor) Statistics(ctx context.Context) (*monstat.MonitoringStatistics, *errors.Error) {
	if !m.cfg.StatisticsEnabled {
		return nil, errors.Verify("Monitoring statistics are disabled")
	}
	s := m.Snapshot()
	if s == nil {
		logger.Warn(ctx, "Monitoring statistics requested before the first snapshot")
		return nil, errors.Verify("Monitoring statistics are not available yet")
	}
	return s, nil
}

// Requests returns the global request statistics of every window keyed by
// window name, or of the single window given.
func (m *Monitor) Requests(ctx context.Context, window string) (map[string]interval.Stats, *errors.Error) {
	s, e := m.Statistics(ctx)
	if e != nil {
		return nil, e
	}
	if window == "" {
		result := make(map[string]interval.Stats, len(s.RequestStatistics.Windows))
		for ms, st := range s.RequestStatistics.Windows {
			result[monstat.WindowName(ms)] = st
		}
		return result, nil
	}
	d, st, e := lookupWindow(s.RequestStatistics, window)
	if e != nil {
		return nil, e
	}
	return map[string]interval.Stats{monstat.WindowName(d.Milliseconds()): st}, nil
}

func (m *Monitor) URIs(ctx context.Context, window string) ([]ResourceSummary, *errors.Error) {
	s, e := m.Statistics(ctx)
	if e != nil {
		return nil, e
	}
	return summarize(s.URIStatistics, window)
}

func (m *Monitor) Classes(ctx context.Context, window string) ([]ResourceSummary, *errors.Error) {
	s, e := m.Statistics(ctx)
	if e != nil {
		return nil, e
	}
	return summarize(s.ResourceClassStatistics, window)
}

func (m *Monitor) URI(ctx context.Context, path string) (*monstat.ResourceStatistics, *errors.Error) {
	s, e := m.Statistics(ctx)
	if e != nil {
		return nil, e
	}
	rs, ok := s.URIStatistics[path]
	if !ok {
		return nil, errors.Verify("Unknown uri " + path)
	}
	return &rs, nil
}

func (m *Monitor) Responses(ctx context.Context) (*monstat.ResponseStatistics, *errors.Error) {
	s, e := m.Statistics(ctx)
	if e != nil {
		return nil, e
	}
	return &s.Responses, nil
}

func (m *Monitor) Exceptions(ctx context.Context) (*monstat.ExceptionMapperStatistics, *errors.Error) {
	s, e := m.Statistics(ctx)
	if e != nil {
		return nil, e
	}
	return &s.ExceptionMappers, nil
}

func lookupWindow(es monstat.ExecutionStatistics, window string) (time.Duration, interval.Stats, *errors.Error) {
	d, err := ParseWindow(window)
	if err != nil {
		return 0, interval.Stats{}, errors.Verify("Invalid window "+window, err)
	}
	st, ok := es.Window(d)
	if !ok {
		return 0, interval.Stats{}, errors.Verify("Window " + window + " is not tracked")
	}
	return d, st, nil
}

// summarize lists resources by request count in the window, busiest first.
// An empty window selects the unbounded one.
func summarize(resources map[string]monstat.ResourceStatistics, window string) ([]ResourceSummary, *errors.Error) {
	if window == "" {
		window = "all"
	}
	result := make([]ResourceSummary, 0, len(resources))
	for name, rs := range resources {
		d, st, e := lookupWindow(rs.RequestStatistics, window)
		if e != nil {
			return nil, e
		}
		result = append(result, ResourceSummary{
			Name:    name,
			Methods: len(rs.Methods),
			Window:  monstat.WindowName(d.Milliseconds()),
			Stats:   st,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Stats.Count != result[j].Stats.Count {
			return result[i].Stats.Count > result[j].Stats.Count
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}
