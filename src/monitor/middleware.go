package monitor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig-mon/src/event"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-Id"

// Middleware observes every request passing through the engine and fires the
// request events to the registered application listeners. It also recovers
// handler panics and runs the error mappers for them and for errors attached
// with c.Error.
func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := event.RequestEvent{
			Type:       event.Start,
			ID:         requestID(c),
			Time:       m.clock.Now(),
			HTTPMethod: c.Request.Method,
			Path:       c.Request.URL.Path,
		}
		listeners := m.requestListeners(ev)
		fire := func(t event.RequestEventType) {
			ev.Type = t
			ev.Time = m.clock.Now()
			for _, l := range listeners {
				l.OnEvent(ev)
			}
		}

		if tpl := c.FullPath(); tpl != "" {
			method := m.resourceMethod(c.Request.Method, tpl, c.HandlerName())
			ev.Template = tpl
			ev.Method = &method
			fire(event.MatchingFinished)
			fire(event.ResourceMethodStart)
		}

		err := next(c)
		if ev.Method != nil {
			fire(event.ResourceMethodFinished)
		}
		if err != nil {
			ev.Err = err
			fire(event.OnException)
			m.mapError(c, &ev, fire)
		}

		fire(event.RespFiltersStart)
		c.Writer.WriteHeaderNow()
		ev.Status = c.Writer.Status()
		ev.ResponseWritten = c.Writer.Written()
		fire(event.Finished)
	}
}

// next runs the rest of the chain and returns the panic or the last error
// attached to the context. A panic aborts the handlers left in the chain.
func next(c *gin.Context) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if r == http.ErrAbortHandler {
			panic(r)
		}
		c.Abort()
		if e, ok := r.(error); ok {
			err = fmt.Errorf("panic: %w", e)
		} else {
			err = fmt.Errorf("panic: %v", r)
		}
		logger.Error(c, "Request panicked", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}()
	c.Next()
	if last := c.Errors.Last(); last != nil {
		return last.Err
	}
	return nil
}

func requestID(c *gin.Context) string {
	id := c.GetHeader(HeaderRequestID)
	if id == "" {
		id = xid.New().String()
		c.Request.Header.Set(HeaderRequestID, id)
	}
	c.Header(HeaderRequestID, id)
	return id
}

// ErrNotFound is attached by NoRoute so unmatched requests can be mapped like
// any other error.
var ErrNotFound = errors.New("resource not found")

// NoRoute attaches ErrNotFound and answers 404 when no mapper handles it.
func NoRoute(c *gin.Context) {
	_ = c.Error(ErrNotFound)
	if !c.Writer.Written() {
		c.Status(http.StatusNotFound)
	}
}
