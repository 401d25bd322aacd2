package procstat

import (
	"context"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/jom-io/gorig/cache"
	"github.com/jom-io/gorig/cronx"
	configure "github.com/jom-io/gorig/utils/cofigure"
	"github.com/jom-io/gorig/utils/errors"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const sampleWindow = time.Second

var (
	serv      *Serv
	servOnce  sync.Once
	maxPeriod = 30 * 24 * time.Hour
)

type Serv struct {
	storage cache.Pager[ProcUsage]
}

func S() *Serv {
	servOnce.Do(func() {
		serv = &Serv{
			storage: cache.NewPager[ProcUsage](context.Background(), cache.Sqlite, "proc_usage"),
		}
	})
	return serv
}

func init() {
	getString := configure.GetString("mon.proc.max_period", "720h")
	if len(getString) > 0 {
		if d, err := time.ParseDuration(getString); err == nil {
			maxPeriod = d
		} else {
			logger.Error(context.Background(), "Failed to parse process MaxPeriod", zap.String("value", getString), zap.Error(err))
		}
	}

	cronx.AddCronTask("*/30 * * * * *", S().Collect, 10*time.Second)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := S().Clear(context.Background()); err != nil {
				logger.Error(context.Background(), "Clear process usage failed", zap.Error(err))
			}
		}
	}()
}

func SetMaxPeriod(d time.Duration) {
	if d <= 0 {
		logger.Error(context.Background(), "SetMaxPeriod called with non-positive duration", zap.Duration("duration", d))
		return
	}
	maxPeriod = d
	logger.Info(context.Background(), "Process MaxPeriod set", zap.Duration("maxPeriod", maxPeriod))
}

// Sample measures the process and the host. CPU percentages are taken over
// a one second window, so Sample blocks for about a second.
func Sample(ctx context.Context) (*ProcUsage, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	var hostCPU []float64
	var hostCPUErr error
	var appCPU float64
	var appCPUErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		hostCPU, hostCPUErr = cpu.PercentWithContext(ctx, sampleWindow, false)
	}()
	go func() {
		defer wg.Done()
		appCPU, appCPUErr = proc.PercentWithContext(ctx, sampleWindow)
	}()
	wg.Wait()

	if hostCPUErr != nil {
		return nil, hostCPUErr
	}
	if appCPUErr != nil {
		return nil, appCPUErr
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	rss, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := proc.NumThreadsWithContext(ctx)
	if err != nil {
		logger.Warn(ctx, "Sample failed to count process threads", zap.Error(err))
	}

	return &ProcUsage{
		AppCPU:     round2(appCPU),
		AppMem:     round2(float64(rss.RSS) / 1024 / 1024),
		Goroutines: int64(runtime.NumGoroutine()),
		Threads:    int64(threads),
		CPU:        round2(average(hostCPU)),
		Mem:        round2(float64(vm.Used) / 1024 / 1024),
		TotalMem:   round2(float64(vm.Total) / 1024 / 1024),
		At:         time.Now().Unix(),
	}, nil
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Serv) Collect(ctx context.Context) {
	usage, err := Sample(ctx)
	if err != nil {
		logger.Error(ctx, "Collect process usage failed", zap.Error(err))
		return
	}
	if err = s.storage.Put(*usage); err != nil {
		logger.Error(ctx, "Collect failed to save process usage", zap.Error(err))
	}
}

// Current samples the process now without storing the result.
func (s *Serv) Current(ctx context.Context) (*ProcUsage, *errors.Error) {
	usage, err := Sample(ctx)
	if err != nil {
		logger.Error(ctx, "Sample process usage failed", zap.Error(err))
		return nil, errors.Sys("Sample process usage failed", err)
	}
	return usage, nil
}

func (s *Serv) Page(ctx context.Context, page, size int64) (*cache.PageCache[ProcUsage], *errors.Error) {
	logger.Info(ctx, "Process usage page called", zap.Int64("page", page), zap.Int64("size", size))
	items, err := s.storage.Find(page, size, nil, cache.PageSorterDesc("at"))
	if err != nil {
		return nil, errors.Verify("FindByPage failed", err)
	}
	return items, nil
}

// Clear removes samples older than the max period.
func (s *Serv) Clear(ctx context.Context) error {
	expirationTime := time.Now().Add(-maxPeriod).Unix()
	if err := s.storage.Delete(map[string]any{"at": map[string]any{"$lt": expirationTime}}); err != nil {
		logger.Error(ctx, "Clear process usage failed", zap.Error(err))
		return err
	}
	return nil
}
