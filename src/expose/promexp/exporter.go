package promexp

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig-mon/src/stat/monstat"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "gorig_mon"

// Exporter mirrors every statistics snapshot into Prometheus gauges. It is
// registered as a statistics listener of the monitor. The counts are snapshot
// values set on each refresh, so they are gauges without the _total suffix.
type Exporter struct {
	registry *prometheus.Registry

	requests       prometheus.Gauge
	rate           *prometheus.GaugeVec
	duration       *prometheus.GaugeVec
	responses      *prometheus.GaugeVec
	mappings       *prometheus.GaugeVec
	mapperRuns     *prometheus.GaugeVec
	uriRequests    *prometheus.GaugeVec
	methodRequests *prometheus.GaugeVec
	dropped        prometheus.Gauge
}

// New creates an exporter with its own registry that also carries the Go
// runtime and process collectors.
func New(namespace string) *Exporter {
	if namespace == "" {
		namespace = defaultNamespace
	}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests",
			Help:      "Requests processed since start",
		}),
		rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_per_second",
			Help:      "Request rate over the trailing window",
		}, []string{"window"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "request_duration_ms",
			Help:      "Min, max and average request duration over the trailing window",
		}, []string{"window", "stat"}),
		responses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "responses",
			Help:      "Responses written per status code",
		}, []string{"code"}),
		mappings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exception_mappings",
			Help:      "Error mappings by outcome",
		}, []string{"result"}),
		mapperRuns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exception_mapper_executions",
			Help:      "Executions per error mapper",
		}, []string{"mapper"}),
		uriRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uri_requests",
			Help:      "Requests per route template",
		}, []string{"uri"}),
		methodRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "method_requests",
			Help:      "Requests per resource method",
		}, []string{"method", "path", "handler"}),
		dropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dropped_events",
			Help:      "Monitoring records dropped because a queue was full",
		}),
	}
	e.registry.MustRegister(
		e.requests, e.rate, e.duration, e.responses, e.mappings,
		e.mapperRuns, e.uriRequests, e.methodRequests, e.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
}

func (e *Exporter) OnStatistics(s *monstat.MonitoringStatistics) {
	if s == nil {
		return
	}
	e.rate.Reset()
	e.duration.Reset()
	for ms, st := range s.RequestStatistics.Windows {
		window := monstat.WindowName(ms)
		if ms == 0 {
			e.requests.Set(float64(st.Count))
		}
		e.rate.WithLabelValues(window).Set(st.RequestsPerSecond)
		// -1 marks a window without data
		if st.MinDuration >= 0 {
			e.duration.WithLabelValues(window, "min").Set(float64(st.MinDuration))
			e.duration.WithLabelValues(window, "max").Set(float64(st.MaxDuration))
			e.duration.WithLabelValues(window, "avg").Set(float64(st.AvgDuration))
		}
	}

	for code, n := range s.Responses.ResponseCodes {
		e.responses.WithLabelValues(strconv.Itoa(code)).Set(float64(n))
	}

	e.mappings.WithLabelValues("successful").Set(float64(s.ExceptionMappers.Successful))
	e.mappings.WithLabelValues("unsuccessful").Set(float64(s.ExceptionMappers.Unsuccessful))
	for mapper, n := range s.ExceptionMappers.Executions {
		e.mapperRuns.WithLabelValues(mapper).Set(float64(n))
	}

	for uri, rs := range s.URIStatistics {
		all, ok := rs.RequestStatistics.Window(0)
		if !ok {
			continue
		}
		e.uriRequests.WithLabelValues(uri).Set(float64(all.Count))
		for _, ms := range rs.Methods {
			if mAll, ok := ms.RequestStatistics.Window(0); ok {
				e.methodRequests.WithLabelValues(ms.Method.HTTPMethod, ms.Method.Path, ms.Method.Handler).Set(float64(mAll.Count))
			}
		}
	}

	e.dropped.Set(float64(s.DroppedEvents))
}

func (e *Exporter) OnDestroy() {
	logger.Info(context.Background(), "Prometheus exporter stopped")
}
