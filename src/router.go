package mon

import (
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig-mon/src/access"
	"github.com/jom-io/gorig-mon/src/expose/promexp"
	"github.com/jom-io/gorig-mon/src/monitor"
	"github.com/jom-io/gorig-mon/src/stat/history"
	"github.com/jom-io/gorig-mon/src/stat/procstat"
	"github.com/jom-io/gorig/httpx"
)

func init() {
	Setup()
}

// Use installs the monitoring middleware on a plain gin engine. Routes
// registered before the call are not monitored.
func Use(engine *gin.Engine) {
	engine.Use(monitor.S().Middleware())
}

// Ready hands the registered routes of a plain gin engine to the monitor as
// the resource model. Call it again after adding routes at runtime. Hosts
// without an engine rely on the model learnt from matched requests or call
// monitor.S().RegisterResources.
func Ready(engine *gin.Engine) {
	m := monitor.S()
	if m.ApplicationInfo().Resources == nil {
		m.Register(engine.Routes())
		return
	}
	m.Reload(engine.Routes())
}

// Setup registers the monitoring router with httpx. The router installs the
// middleware on the root group, so only routes registered after it are
// monitored: import this package before the packages registering the
// application routes.
func Setup() {
	m := monitor.S()
	var exporter *promexp.Exporter
	if m.Config().PrometheusEnabled {
		exporter = promexp.New("")
		m.AddListener(exporter)
	}
	key := access.Key()
	if !m.Config().Enabled && key == "" {
		return
	}
	httpx.RegisterRouter(routes(m, exporter, key))
}

func routes(m *monitor.Monitor, exporter *promexp.Exporter, key string) func(groupRouter *gin.RouterGroup) {
	return func(groupRouter *gin.RouterGroup) {
		if m.Config().Enabled {
			groupRouter.Use(m.Middleware())
		}

		mon := groupRouter.Group("mon")
		if exporter != nil {
			mon.GET("metrics", exporter.Handler())
		}
		if key == "" {
			return
		}

		auth := mon.Group("auth")
		auth.POST("connect", access.Login)

		mon.Use(access.Sign())
		mon.GET("app", monitor.App)

		s := mon.Group("stat")
		s.GET("snapshot", monitor.Snapshot)
		s.GET("requests", monitor.Requests)
		s.GET("uris", monitor.URIs)
		s.GET("uri", monitor.URI)
		s.GET("classes", monitor.Classes)
		s.GET("responses", monitor.Responses)
		s.GET("exceptions", monitor.Exceptions)
		s.GET("history/page", history.Page)
		s.GET("history/time", history.TimeRange)

		p := mon.Group("proc")
		p.GET("usage", procstat.Usage)
		p.GET("current", procstat.Current)
	}
}
