package monitor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig-mon/src/event"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

type errorMapper struct {
	name string
	// bind returns the handler for err if this mapper accepts it.
	bind func(err error) (func(c *gin.Context) bool, bool)
}

// HandleError registers a mapper for errors of type E, matched with
// errors.As. The handler writes the response and reports whether the error
// was mapped successfully. Mappers are tried in registration order.
func HandleError[E error](m *Monitor, name string, fn func(c *gin.Context, err E) bool) {
	mp := errorMapper{
		name: name,
		bind: func(err error) (func(c *gin.Context) bool, bool) {
			var target E
			if !errors.As(err, &target) {
				return nil, false
			}
			return func(c *gin.Context) bool { return fn(c, target) }, true
		},
	}
	m.mu.Lock()
	m.mappers = append(m.mappers, mp)
	m.mu.Unlock()
}

func (m *Monitor) errorMappers() []errorMapper {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mappers
}

// mapError runs the first mapper that accepts ev.Err. Errors nobody maps
// successfully end the request with the error status already set, or 500.
// Once a response was written no mapper runs and the mapping fails.
func (m *Monitor) mapError(c *gin.Context, ev *event.RequestEvent, fire func(event.RequestEventType)) {
	if c.Writer.Written() {
		logger.Warn(c, "Response already written, error not mapped", zap.String("path", c.Request.URL.Path), zap.Error(ev.Err))
		fire(event.ExceptionMappingFinished)
		return
	}
	for _, mp := range m.errorMappers() {
		handle, ok := mp.bind(ev.Err)
		if !ok {
			continue
		}
		ev.Mapper = mp.name
		fire(event.ExceptionMapperFound)
		ev.ResponseSuccessfullyMapped = runMapper(c, mp.name, handle)
		break
	}
	if !ev.ResponseSuccessfullyMapped && !c.Writer.Written() {
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.AbortWithStatus(status)
	}
	fire(event.ExceptionMappingFinished)
}

func runMapper(c *gin.Context, name string, handle func(c *gin.Context) bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(c, "Error mapper panicked", zap.String("mapper", name), zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()
	return handle(c)
}
