package monstat

import (
	"time"

	"github.com/jom-io/gorig-mon/src/event"
)

// ResourceMethodStatistics splits the time spent in the handler from the time
// spent on the whole request for one resource method.
type ResourceMethodStatistics struct {
	Method            event.ResourceMethod `json:"method"`
	MethodStatistics  ExecutionStatistics  `json:"methodStatistics"`
	RequestStatistics ExecutionStatistics  `json:"requestStatistics"`
}

// ResourceStatistics aggregates all methods of a resource, which is either a
// route template or a handler class depending on the map it is found in.
type ResourceStatistics struct {
	ResourceStatistics ExecutionStatistics                 `json:"resourceStatistics"`
	RequestStatistics  ExecutionStatistics                 `json:"requestStatistics"`
	Methods            map[string]ResourceMethodStatistics `json:"methods"`
}

type methodBuilder struct {
	method  event.ResourceMethod
	handler *executionBuilder
	request *executionBuilder
}

func newMethodBuilder(m event.ResourceMethod, windows []time.Duration, start time.Time) *methodBuilder {
	return &methodBuilder{
		method:  m,
		handler: newExecutionBuilder(windows, start),
		request: newExecutionBuilder(windows, start),
	}
}

func (b *methodBuilder) build(now time.Time) ResourceMethodStatistics {
	return ResourceMethodStatistics{
		Method:            b.method,
		MethodStatistics:  b.handler.build(now),
		RequestStatistics: b.request.build(now),
	}
}

type resourceBuilder struct {
	windows  []time.Duration
	start    time.Time
	resource *executionBuilder
	request  *executionBuilder
	methods  map[string]*methodBuilder
}

func newResourceBuilder(windows []time.Duration, start time.Time) *resourceBuilder {
	return &resourceBuilder{
		windows:  windows,
		start:    start,
		resource: newExecutionBuilder(windows, start),
		request:  newExecutionBuilder(windows, start),
		methods:  make(map[string]*methodBuilder),
	}
}

func (b *resourceBuilder) addMethod(m event.ResourceMethod) *methodBuilder {
	key := m.Key()
	mb, ok := b.methods[key]
	if !ok {
		mb = newMethodBuilder(m, b.windows, b.start)
		b.methods[key] = mb
	}
	return mb
}

func (b *resourceBuilder) addExecution(m event.ResourceMethod, methodStart time.Time, methodDur time.Duration, reqStart time.Time, reqDur time.Duration) {
	mb := b.addMethod(m)
	mb.handler.addExecution(methodStart, methodDur)
	mb.request.addExecution(reqStart, reqDur)
	b.resource.addExecution(methodStart, methodDur)
	b.request.addExecution(reqStart, reqDur)
}

func (b *resourceBuilder) build(now time.Time) ResourceStatistics {
	s := ResourceStatistics{
		ResourceStatistics: b.resource.build(now),
		RequestStatistics:  b.request.build(now),
		Methods:            make(map[string]ResourceMethodStatistics, len(b.methods)),
	}
	for key, mb := range b.methods {
		s.Methods[key] = mb.build(now)
	}
	return s
}
