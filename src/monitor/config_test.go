package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindows(t *testing.T) {
	ws, err := ParseWindows("0, 1s,15m ,all,1h,1s")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, time.Second, 15 * time.Minute, time.Hour}, ws)

	_, err = ParseWindows(" , ")
	assert.Error(t, err)
	_, err = ParseWindows("1s,-5s")
	assert.Error(t, err)
	_, err = ParseWindows("1s,often")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cfg := Config{PrometheusEnabled: true}.normalize()
	assert.True(t, cfg.StatisticsEnabled)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, defaultRefreshInterval, cfg.RefreshInterval)
	assert.Equal(t, defaultQueueSize, cfg.QueueSize)
	assert.NotEmpty(t, cfg.Windows)

	cfg = Config{}.normalize()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.StatisticsEnabled)

	cfg = Config{StatisticsEnabled: true, RefreshInterval: time.Second, QueueSize: 7}.normalize()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Second, cfg.RefreshInterval)
	assert.Equal(t, 7, cfg.QueueSize)
}
