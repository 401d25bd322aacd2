package monstat

import (
	"time"

	"github.com/jom-io/gorig-mon/src/event"
)

// MonitoringStatistics is an immutable snapshot of everything the monitoring
// pipeline has aggregated so far. Callers must not modify its maps.
type MonitoringStatistics struct {
	At                      time.Time                     `json:"at"`
	RequestStatistics       ExecutionStatistics           `json:"requestStatistics"`
	Responses               ResponseStatistics            `json:"responses"`
	ExceptionMappers        ExceptionMapperStatistics     `json:"exceptionMappers"`
	URIStatistics           map[string]ResourceStatistics `json:"uriStatistics"`
	ResourceClassStatistics map[string]ResourceStatistics `json:"resourceClassStatistics"`
	DroppedEvents           int64                         `json:"droppedEvents"`
}

// Builder folds monitoring events into statistics builders and produces
// snapshots. It is owned by a single goroutine.
type Builder struct {
	windows []time.Duration

	request   *executionBuilder
	responses *responseBuilder
	mappers   *mapperBuilder
	uris      map[string]*resourceBuilder
	classes   map[string]*resourceBuilder
	dropped   int64
}

func NewBuilder(windows []time.Duration, start time.Time) *Builder {
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	return &Builder{
		windows:   windows,
		request:   newExecutionBuilder(windows, start),
		responses: newResponseBuilder(),
		mappers:   newMapperBuilder(),
		uris:      make(map[string]*resourceBuilder),
		classes:   make(map[string]*resourceBuilder),
	}
}

// AddResources registers the resource model so that endpoints that have not
// been called yet still show up with empty statistics.
func (b *Builder) AddResources(resources []event.Resource, at time.Time) {
	for _, res := range resources {
		uri := b.uri(res.Path, at)
		for _, m := range res.Methods {
			uri.addMethod(m)
			b.class(m.Class, at).addMethod(m)
		}
	}
}

func (b *Builder) uri(path string, at time.Time) *resourceBuilder {
	rb, ok := b.uris[path]
	if !ok {
		rb = newResourceBuilder(b.windows, at)
		b.uris[path] = rb
	}
	return rb
}

func (b *Builder) class(name string, at time.Time) *resourceBuilder {
	rb, ok := b.classes[name]
	if !ok {
		rb = newResourceBuilder(b.windows, at)
		b.classes[name] = rb
	}
	return rb
}

// AddRequestExecution records a request regardless of whether it matched a
// resource.
func (b *Builder) AddRequestExecution(start time.Time, d time.Duration) {
	b.request.addExecution(start, d)
}

// AddExecution records a matched request against both the route template and
// the handler class of the resource method.
func (b *Builder) AddExecution(template string, m event.ResourceMethod, methodStart time.Time, methodDur time.Duration, reqStart time.Time, reqDur time.Duration) {
	if template == "" {
		template = m.Path
	}
	b.uri(template, reqStart).addExecution(m, methodStart, methodDur, reqStart, reqDur)
	b.class(m.Class, reqStart).addExecution(m, methodStart, methodDur, reqStart, reqDur)
}

func (b *Builder) AddResponseCode(code int) {
	b.responses.addResponseCode(code)
}

func (b *Builder) AddExceptionMapperExecution(mapper string, n int64) {
	b.mappers.executions[mapper] += n
}

func (b *Builder) AddMapping(success bool, n int64) {
	if success {
		b.mappers.successful += n
	} else {
		b.mappers.unsuccessful += n
	}
}

func (b *Builder) AddDropped(n int64) {
	b.dropped += n
}

// Build closes elapsed units in every window and returns a new snapshot.
func (b *Builder) Build(now time.Time) *MonitoringStatistics {
	s := &MonitoringStatistics{
		At:                      now,
		RequestStatistics:       b.request.build(now),
		Responses:               b.responses.build(),
		ExceptionMappers:        b.mappers.build(),
		URIStatistics:           make(map[string]ResourceStatistics, len(b.uris)),
		ResourceClassStatistics: make(map[string]ResourceStatistics, len(b.classes)),
		DroppedEvents:           b.dropped,
	}
	for path, rb := range b.uris {
		s.URIStatistics[path] = rb.build(now)
	}
	for name, rb := range b.classes {
		s.ResourceClassStatistics[name] = rb.build(now)
	}
	return s
}
