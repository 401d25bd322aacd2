package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig-mon/src/event"
	"github.com/jom-io/gorig-mon/src/stat/monstat"
	"github.com/jom-io/gorig/global/variable"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	mon     *Monitor
	monOnce sync.Once
)

type Option func(m *Monitor)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(m *Monitor) {
		m.clock = clk
	}
}

func WithName(name string) Option {
	return func(m *Monitor) {
		m.name = name
	}
}

// WithoutAnnouncements stops the processor from publishing snapshots on the
// message bus.
func WithoutAnnouncements() Option {
	return func(m *Monitor) {
		m.announce = false
	}
}

// Monitor ties the request event source, the queueing listener and the
// statistics processor together.
type Monitor struct {
	cfg       Config
	clock     clock.Clock
	name      string
	announce  bool
	startTime time.Time

	mu            sync.RWMutex
	appListeners  []event.ApplicationEventListener
	statListeners []StatisticsListener
	mappers       []errorMapper
	resources     []event.Resource
	methods       map[string]event.ResourceMethod

	events  *EventListener
	proc    *processor
	started atomic.Bool
	stopped atomic.Bool
}

// S returns the process wide monitor configured from the mon.* keys. Its
// processor is started on first use.
func S() *Monitor {
	monOnce.Do(func() {
		mon = New(LoadConfig(), WithName(variable.SysName))
		mon.Start(context.Background())
	})
	return mon
}

func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      cfg.normalize(),
		clock:    clock.New(),
		announce: true,
		methods:  make(map[string]event.ResourceMethod),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.startTime = m.clock.Now()

	if m.cfg.StatisticsEnabled {
		m.events = NewEventListener(m.cfg.QueueSize)
		m.appListeners = append(m.appListeners, m.events)
		m.proc = newProcessor(m.cfg, m.clock, m.events, m.statisticsListeners)
		m.proc.announce = m.announce
	}
	return m
}

func (m *Monitor) Config() Config {
	return m.cfg
}

// Start launches the statistics processor. It is a no-op when statistics are
// disabled or the processor already runs.
func (m *Monitor) Start(ctx context.Context) {
	if m.proc == nil || !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.proc.run()
	logger.Info(ctx, "Monitoring statistics started",
		zap.Duration("refresh", m.cfg.RefreshInterval),
		zap.Int("queue", m.cfg.QueueSize),
		zap.Int("windows", len(m.cfg.Windows)))
}

// Stop fires the Destroy event, builds the last snapshot and notifies the
// statistics listeners. It can only run once.
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.stopped.CompareAndSwap(false, true) {
		return nil
	}
	m.fireApplication(event.ApplicationEvent{Type: event.Destroy, Time: m.clock.Now()})

	var err error
	if m.proc != nil {
		if m.started.Load() {
			err = multierr.Append(err, m.proc.shutdown(ctx))
		} else {
			m.proc.process()
		}
	}
	for _, l := range m.statisticsListeners() {
		err = multierr.Append(err, destroy(l))
	}
	if err != nil {
		logger.Error(ctx, "Monitoring stopped with errors", zap.Error(err))
	}
	return err
}

func destroy(l StatisticsListener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("statistics listener %T panicked on destroy: %v", l, r)
		}
	}()
	l.OnDestroy()
	return nil
}

// Register installs the resource model built from the routes of an engine
// and fires the initialization events.
func (m *Monitor) Register(routes gin.RoutesInfo) {
	m.RegisterResources(event.ModelFromRoutes(routes))
}

// Reload replaces the resource model with the routes of an engine.
func (m *Monitor) Reload(routes gin.RoutesInfo) {
	m.ReloadResources(event.ModelFromRoutes(routes))
}

// RegisterResources installs a resource model for hosts that do not expose
// their engine. Without any model the monitor learns resources from the
// requests it matches.
func (m *Monitor) RegisterResources(resources []event.Resource) {
	if !m.cfg.Enabled {
		return
	}
	m.fireApplication(event.ApplicationEvent{Type: event.InitializationStart, Time: m.clock.Now()})
	m.setModel(resources)
	m.fireApplication(event.ApplicationEvent{Type: event.InitializationFinished, Time: m.clock.Now(), Resources: resources})
}

// ReloadResources replaces the resource model. Statistics of resources that
// are gone are kept.
func (m *Monitor) ReloadResources(resources []event.Resource) {
	if !m.cfg.Enabled {
		return
	}
	m.setModel(resources)
	m.fireApplication(event.ApplicationEvent{Type: event.ReloadFinished, Time: m.clock.Now(), Resources: resources})
}

func (m *Monitor) setModel(resources []event.Resource) {
	methods := make(map[string]event.ResourceMethod)
	for _, res := range resources {
		for _, rm := range res.Methods {
			methods[rm.Key()] = rm
		}
	}
	m.mu.Lock()
	m.resources = resources
	m.methods = methods
	m.mu.Unlock()
}

// resourceMethod resolves a matched route. Routes missing from the model are
// added to it.
func (m *Monitor) resourceMethod(httpMethod, template, handler string) event.ResourceMethod {
	key := event.MethodKey(httpMethod, template)
	m.mu.RLock()
	rm, ok := m.methods[key]
	m.mu.RUnlock()
	if ok {
		return rm
	}
	rm = event.NewResourceMethod(httpMethod, template, handler)
	if !m.cfg.Enabled {
		return rm
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if known, ok := m.methods[key]; ok {
		return known
	}
	m.methods[key] = rm
	m.resources = event.AddMethod(m.resources, rm)
	return rm
}

func (m *Monitor) ApplicationInfo() event.ApplicationInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return event.ApplicationInfo{
		Name:      m.name,
		StartTime: m.startTime,
		Resources: m.resources,
	}
}

// Snapshot returns the latest statistics, or nil before the first snapshot
// was built or when statistics are disabled.
func (m *Monitor) Snapshot() *monstat.MonitoringStatistics {
	if m.proc == nil {
		return nil
	}
	return m.proc.current.Load()
}

func (m *Monitor) AddApplicationListener(l event.ApplicationEventListener) {
	m.mu.Lock()
	m.appListeners = append(m.appListeners, l)
	m.mu.Unlock()
}

func (m *Monitor) AddListener(l StatisticsListener) {
	m.mu.Lock()
	m.statListeners = append(m.statListeners, l)
	m.mu.Unlock()
}

func (m *Monitor) statisticsListeners() []StatisticsListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statListeners
}

func (m *Monitor) applicationListeners() []event.ApplicationEventListener {
	if !m.cfg.Enabled {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appListeners
}

func (m *Monitor) fireApplication(ev event.ApplicationEvent) {
	for _, l := range m.applicationListeners() {
		l.OnEvent(ev)
	}
}

// requestListeners asks every application listener for a listener of the
// request that just started and fires Start on it.
func (m *Monitor) requestListeners(ev event.RequestEvent) []event.RequestEventListener {
	var result []event.RequestEventListener
	for _, al := range m.applicationListeners() {
		if rl := al.OnRequest(ev); rl != nil {
			rl.OnEvent(ev)
			result = append(result, rl)
		}
	}
	return result
}
