package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jom-io/gorig-mon/src/event"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

type timeStats struct {
	start    time.Time
	duration time.Duration
}

type methodStats struct {
	method event.ResourceMethod
	timeStats
}

type requestStats struct {
	timeStats
	template string
	method   *methodStats
}

type mappingStats struct {
	mapper  string
	success bool
}

// EventListener turns request events into compact records and offers them to
// bounded queues drained by the statistics processor. Request goroutines never
// block on it: when a queue is full the record is dropped and counted.
type EventListener struct {
	requests chan requestStats
	statuses chan int
	mappings chan mappingStats

	mu        sync.Mutex
	resources [][]event.Resource

	dropped atomic.Int64
	warned  atomic.Bool
}

func NewEventListener(queueSize int) *EventListener {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &EventListener{
		requests: make(chan requestStats, queueSize),
		statuses: make(chan int, queueSize),
		mappings: make(chan mappingStats, queueSize),
	}
}

func (l *EventListener) OnEvent(ev event.ApplicationEvent) {
	switch ev.Type {
	case event.InitializationFinished, event.ReloadFinished:
		l.mu.Lock()
		l.resources = append(l.resources, ev.Resources)
		l.mu.Unlock()
	}
}

func (l *EventListener) OnRequest(ev event.RequestEvent) event.RequestEventListener {
	return &requestListener{parent: l, start: ev.Time}
}

func (l *EventListener) takeResources() [][]event.Resource {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := l.resources
	l.resources = nil
	return res
}

// takeDropped returns the number of records dropped since the last call and
// re-arms the full-queue warning.
func (l *EventListener) takeDropped() int64 {
	l.warned.Store(false)
	return l.dropped.Swap(0)
}

func (l *EventListener) drop(queue string) {
	l.dropped.Add(1)
	if l.warned.CompareAndSwap(false, true) {
		logger.Warn(context.Background(), "Monitoring queue is full, dropping events", zap.String("queue", queue))
	}
}

func offer[T any](l *EventListener, ch chan T, v T, queue string) {
	select {
	case ch <- v:
	default:
		l.drop(queue)
	}
}

type requestListener struct {
	parent      *EventListener
	start       time.Time
	methodStart time.Time
	template    string
	method      *methodStats
}

func (r *requestListener) OnEvent(ev event.RequestEvent) {
	switch ev.Type {
	case event.ResourceMethodStart:
		r.methodStart = ev.Time
	case event.ResourceMethodFinished:
		if ev.Method == nil {
			return
		}
		r.template = ev.Template
		r.method = &methodStats{
			method:    *ev.Method,
			timeStats: timeStats{start: r.methodStart, duration: ev.Time.Sub(r.methodStart)},
		}
	case event.ExceptionMappingFinished:
		offer(r.parent, r.parent.mappings, mappingStats{mapper: ev.Mapper, success: ev.ResponseSuccessfullyMapped}, "mappings")
	case event.Finished:
		if ev.ResponseWritten {
			offer(r.parent, r.parent.statuses, ev.Status, "statuses")
		}
		offer(r.parent, r.parent.requests, requestStats{
			timeStats: timeStats{start: r.start, duration: ev.Time.Sub(r.start)},
			template:  r.template,
			method:    r.method,
		}, "requests")
	}
}
