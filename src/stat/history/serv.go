package history

import (
	"context"
	"sync"
	"time"

	"github.com/jom-io/gorig-mon/src/monitor"
	"github.com/jom-io/gorig-mon/src/stat/monstat"
	"github.com/jom-io/gorig/cache"
	"github.com/jom-io/gorig/cronx"
	configure "github.com/jom-io/gorig/utils/cofigure"
	"github.com/jom-io/gorig/utils/errors"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

const maxRangeRows = 7 * 24 * 60

var (
	serv      *Serv
	servOnce  sync.Once
	maxPeriod = 30 * 24 * time.Hour
)

type Serv struct {
	storage cache.Pager[RequestHistory]
	source  func() *monstat.MonitoringStatistics

	mu   sync.Mutex
	prev *monstat.MonitoringStatistics
}

func S() *Serv {
	servOnce.Do(func() {
		serv = &Serv{
			storage: cache.NewPager[RequestHistory](context.Background(), cache.Sqlite, "request_history"),
			source: func() *monstat.MonitoringStatistics {
				return monitor.S().Snapshot()
			},
		}
	})
	return serv
}

func init() {
	getString := configure.GetString("mon.history.max_period", "720h")
	if len(getString) > 0 {
		if d, err := time.ParseDuration(getString); err == nil {
			maxPeriod = d
		} else {
			logger.Error(context.Background(), "Failed to parse history MaxPeriod", zap.String("value", getString), zap.Error(err))
		}
	}

	cronx.AddCronTask("0 * * * * *", S().Collect, 10*time.Second)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := S().Clear(context.Background()); err != nil {
				logger.Error(context.Background(), "Clear request history failed", zap.Error(err))
			}
		}
	}()
}

func SetMaxPeriod(d time.Duration) {
	if d <= 0 {
		logger.Error(context.Background(), "SetMaxPeriod called with non-positive duration", zap.Duration("duration", d))
		return
	}
	maxPeriod = d
	logger.Info(context.Background(), "History MaxPeriod set", zap.Duration("maxPeriod", maxPeriod))
}

// Collect stores a sample of the latest snapshot. Nothing is stored before
// the first snapshot exists.
func (s *Serv) Collect(ctx context.Context) {
	cur := s.source()
	if cur == nil {
		return
	}
	s.mu.Lock()
	rec := record(s.prev, cur, time.Now().Truncate(time.Minute).Unix())
	s.prev = cur
	s.mu.Unlock()

	if err := s.storage.Put(rec); err != nil {
		logger.Error(ctx, "Save request history failed", zap.Error(err))
	}
}

// record builds a sample from cur. Cumulative counters are turned into
// deltas against prev, which is nil for the first sample.
func record(prev, cur *monstat.MonitoringStatistics, at int64) RequestHistory {
	rec := RequestHistory{
		At:          at,
		MinDuration: -1,
		MaxDuration: -1,
		AvgDuration: -1,
	}
	if all, ok := cur.RequestStatistics.Window(0); ok {
		rec.Total = all.Count
	}
	if minute, ok := cur.RequestStatistics.Window(time.Minute); ok {
		rec.Count = minute.Count
		rec.RequestsPerSecond = minute.RequestsPerSecond
		rec.MinDuration = minute.MinDuration
		rec.MaxDuration = minute.MaxDuration
		rec.AvgDuration = minute.AvgDuration
	}

	for code, n := range cur.Responses.ResponseCodes {
		if prev != nil {
			n -= prev.Responses.ResponseCodes[code]
		}
		switch {
		case code >= 200 && code < 300:
			rec.Count2xx += n
		case code >= 400 && code < 500:
			rec.Count4xx += n
		case code >= 500 && code < 600:
			rec.Count5xx += n
		default:
			rec.CountOther += n
		}
	}

	rec.Mappings = cur.ExceptionMappers.Total
	rec.FailedMappings = cur.ExceptionMappers.Unsuccessful
	rec.Dropped = cur.DroppedEvents
	if prev != nil {
		rec.Mappings -= prev.ExceptionMappers.Total
		rec.FailedMappings -= prev.ExceptionMappers.Unsuccessful
		rec.Dropped -= prev.DroppedEvents
	}
	return rec
}

func (s *Serv) Page(ctx context.Context, page, size int64) (*cache.PageCache[RequestHistory], *errors.Error) {
	logger.Info(ctx, "Request history page called", zap.Int64("page", page), zap.Int64("size", size))
	items, err := s.storage.Find(page, size, nil, cache.PageSorterDesc("at"))
	if err != nil {
		return nil, errors.Verify("FindByPage failed", err)
	}
	return items, nil
}

// TimeRange returns the samples between start and end (unix seconds),
// oldest first. At most a week of samples is returned.
func (s *Serv) TimeRange(ctx context.Context, start, end int64) ([]*RequestHistory, *errors.Error) {
	if start == 0 || end == 0 || start > end {
		return nil, errors.Verify("Invalid time range")
	}
	cond := map[string]any{
		"at": map[string]any{
			"$gte": start,
			"$lte": end,
		},
	}
	result, err := s.storage.Find(1, maxRangeRows, cond, cache.PageSorterDesc("at"))
	if err != nil {
		logger.Error(ctx, "Find request history failed", zap.Error(err))
		return nil, errors.Sys("Find request history failed", err)
	}
	items := result.Items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

// Clear removes samples older than the max period.
func (s *Serv) Clear(ctx context.Context) error {
	expirationTime := time.Now().Add(-maxPeriod).Unix()
	if err := s.storage.Delete(map[string]any{"at": map[string]any{"$lt": expirationTime}}); err != nil {
		logger.Error(ctx, "Clear request history failed", zap.Error(err))
		return err
	}
	return nil
}
