package monitor

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jom-io/gorig-mon/src/stat/monstat"
	"github.com/jom-io/gorig/mid/messagex"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

// TopicStatistics is announced on the message bus after every snapshot.
const TopicStatistics = "mon.statistics"

// StatisticsListener receives every snapshot built by the processor.
type StatisticsListener interface {
	OnStatistics(s *monstat.MonitoringStatistics)
	// OnDestroy is called once after the final snapshot on shutdown.
	OnDestroy()
}

// processor periodically drains the event queues into the statistics builder
// and publishes a new snapshot. Only its own goroutine touches the builder.
type processor struct {
	clock     clock.Clock
	interval  time.Duration
	events    *EventListener
	builder   *monstat.Builder
	listeners func() []StatisticsListener
	announce  bool

	current atomic.Pointer[monstat.MonitoringStatistics]
	stop    chan struct{}
	done    chan struct{}
}

func newProcessor(cfg Config, clk clock.Clock, events *EventListener, listeners func() []StatisticsListener) *processor {
	return &processor{
		clock:     clk,
		interval:  cfg.RefreshInterval,
		events:    events,
		builder:   monstat.NewBuilder(cfg.Windows, clk.Now()),
		listeners: listeners,
		announce:  true,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (p *processor) run() {
	defer close(p.done)
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.process()
		case <-p.stop:
			p.process()
			return
		}
	}
}

func (p *processor) process() {
	now := p.clock.Now()
	for _, res := range p.events.takeResources() {
		p.builder.AddResources(res, now)
	}
	p.processRequests()
	p.processStatuses()
	p.processMappings()
	p.builder.AddDropped(p.events.takeDropped())

	s := p.builder.Build(now)
	p.current.Store(s)
	for _, l := range p.listeners() {
		p.notify(l, s)
	}
	if p.announce {
		p.publish(s)
	}
}

// The process* functions only drain what was queued when they started so a
// busy server cannot keep the processor from building snapshots.
func (p *processor) processRequests() {
	for n := len(p.events.requests); n > 0; n-- {
		rs := <-p.events.requests
		p.builder.AddRequestExecution(rs.start, rs.duration)
		if rs.method != nil {
			p.builder.AddExecution(rs.template, rs.method.method, rs.method.start, rs.method.duration, rs.start, rs.duration)
		}
	}
}

func (p *processor) processStatuses() {
	for n := len(p.events.statuses); n > 0; n-- {
		p.builder.AddResponseCode(<-p.events.statuses)
	}
}

func (p *processor) processMappings() {
	for n := len(p.events.mappings); n > 0; n-- {
		ms := <-p.events.mappings
		if ms.mapper != "" {
			p.builder.AddExceptionMapperExecution(ms.mapper, 1)
		}
		p.builder.AddMapping(ms.success, 1)
	}
}

func (p *processor) notify(l StatisticsListener, s *monstat.MonitoringStatistics) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(context.Background(), "Statistics listener panicked", zap.Any("panic", r), zap.String("listener", fmt.Sprintf("%T", l)))
		}
	}()
	l.OnStatistics(s)
}

func (p *processor) publish(s *monstat.MonitoringStatistics) {
	var count int64
	if all, ok := s.RequestStatistics.Window(0); ok {
		count = all.Count
	}
	messagex.PublishNewMsg(context.Background(), TopicStatistics, map[string]string{
		"at":       strconv.FormatInt(s.At.UnixMilli(), 10),
		"requests": strconv.FormatInt(count, 10),
	})
}

// shutdown stops the loop after a final snapshot. It waits for the loop to
// exit or for ctx to be done.
func (p *processor) shutdown(ctx context.Context) error {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
