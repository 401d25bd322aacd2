package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jom-io/gorig-mon/src/stat/monstat"
	configure "github.com/jom-io/gorig/utils/cofigure"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	defaultRefreshInterval = 500 * time.Millisecond
	defaultQueueSize       = 50000
)

type Config struct {
	// Enabled turns on application events and the application info.
	Enabled bool
	// StatisticsEnabled turns on the statistics pipeline. Implies Enabled.
	StatisticsEnabled bool
	// PrometheusEnabled exposes statistics as Prometheus metrics. Implies StatisticsEnabled.
	PrometheusEnabled bool
	RefreshInterval   time.Duration
	QueueSize         int
	Windows           []time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		StatisticsEnabled: true,
		RefreshInterval:   defaultRefreshInterval,
		QueueSize:         defaultQueueSize,
		Windows:           monstat.DefaultWindows,
	}
}

// normalize applies the implications between switches and fills defaults.
func (c Config) normalize() Config {
	if c.PrometheusEnabled {
		c.StatisticsEnabled = true
	}
	if c.StatisticsEnabled {
		c.Enabled = true
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if len(c.Windows) == 0 {
		c.Windows = monstat.DefaultWindows
	}
	return c
}

// LoadConfig reads the mon.* keys from the application configuration. Invalid
// values are logged and replaced by defaults.
func LoadConfig() Config {
	ctx := context.Background()
	cfg := DefaultConfig()

	if v, err := cast.ToBoolE(configure.GetString("mon.enabled", "true")); err == nil {
		cfg.Enabled = v
	} else {
		logger.Error(ctx, "Failed to parse mon.enabled", zap.Error(err))
	}
	if v, err := cast.ToBoolE(configure.GetString("mon.statistics.enabled", "true")); err == nil {
		cfg.StatisticsEnabled = v
	} else {
		logger.Error(ctx, "Failed to parse mon.statistics.enabled", zap.Error(err))
	}
	if v, err := cast.ToBoolE(configure.GetString("mon.statistics.prometheus.enabled", "false")); err == nil {
		cfg.PrometheusEnabled = v
	} else {
		logger.Error(ctx, "Failed to parse mon.statistics.prometheus.enabled", zap.Error(err))
	}

	refresh := configure.GetString("mon.statistics.refresh_interval", "500ms")
	if d, err := time.ParseDuration(refresh); err == nil {
		cfg.RefreshInterval = d
	} else {
		logger.Error(ctx, "Failed to parse mon.statistics.refresh_interval", zap.String("value", refresh), zap.Error(err))
	}

	if v, err := cast.ToIntE(configure.GetString("mon.statistics.queue_size", "50000")); err == nil {
		cfg.QueueSize = v
	} else {
		logger.Error(ctx, "Failed to parse mon.statistics.queue_size", zap.Error(err))
	}

	windows := configure.GetString("mon.statistics.windows", "0,1s,15s,1m,15m,1h")
	if ws, err := ParseWindows(windows); err == nil {
		cfg.Windows = ws
	} else {
		logger.Error(ctx, "Failed to parse mon.statistics.windows", zap.String("value", windows), zap.Error(err))
	}

	return cfg.normalize()
}

// ParseWindows parses a comma separated list of window lengths such as
// "0,1s,15m". "0" and "all" mean the unbounded window.
func ParseWindows(s string) ([]time.Duration, error) {
	var result []time.Duration
	seen := make(map[time.Duration]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := ParseWindow(part)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		result = append(result, d)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no windows in %q", s)
	}
	return result, nil
}

func ParseWindow(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "0" || s == "all" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative window %q", s)
	}
	return d, nil
}
