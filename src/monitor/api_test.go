package monitor

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// useMonitor makes m the monitor returned by S. It only works before
// anything else in the test binary called S.
func useMonitor(t *testing.T, m *Monitor) {
	t.Helper()
	monOnce.Do(func() { mon = m })
	require.Same(t, m, S(), "default monitor was created before the test")
}

func TestAPIHandlers(t *testing.T) {
	m, _, r := newTestMonitor(t, testConfig())
	useMonitor(t, m)

	api := gin.New()
	api.GET("/app", App)
	api.GET("/snapshot", Snapshot)
	api.GET("/requests", Requests)
	api.GET("/uris", URIs)
	api.GET("/uri", URI)
	api.GET("/classes", Classes)
	api.GET("/responses", Responses)
	api.GET("/exceptions", Exceptions)

	w := serve(api, "GET", "/snapshot")
	assert.Equal(t, http.StatusBadRequest, w.Code, "no snapshot yet")

	serve(r, "GET", "/users/1")
	serve(r, "GET", "/users/2")
	serve(r, "GET", "/fail/1")
	m.proc.process()

	w = serve(api, "GET", "/app")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", gjson.Get(w.Body.String(), "data.name").String())
	assert.Equal(t, int64(4), gjson.Get(w.Body.String(), "data.resources.#").Int())

	w = serve(api, "GET", "/snapshot")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), gjson.Get(w.Body.String(), "data.requestStatistics.windows.0.count").Int())

	w = serve(api, "GET", "/requests")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), gjson.Get(w.Body.String(), "data.all.count").Int())
	assert.True(t, gjson.Get(w.Body.String(), "data.1m").Exists())

	w = serve(api, "GET", "/requests?window=1m")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "data.all").Exists())
	assert.Equal(t, http.StatusBadRequest, serve(api, "GET", "/requests?window=soon").Code)

	w = serve(api, "GET", "/uris")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/users/:id", gjson.Get(w.Body.String(), "data.0.name").String())
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "data.0.stats.count").Int())

	w = serve(api, "GET", "/uri?path=/users/:id")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "data.methods").Map(), 1)
	w = serve(api, "GET", "/uri")
	assert.NotEqual(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "data.methods").Exists())
	assert.Equal(t, http.StatusBadRequest, serve(api, "GET", "/uri?path=/nope").Code)

	w = serve(api, "GET", "/classes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.#").Int())

	w = serve(api, "GET", "/responses")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "data.responseCodes.200").Int())
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.responseCodes.500").Int())

	w = serve(api, "GET", "/exceptions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.unsuccessful").Int())
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.total").Int())
}
