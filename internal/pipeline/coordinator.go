// Package pipeline runs independent units of work on a bounded worker pool.
//
// Run fans a slice of items out to workers, isolates per-item failures and
// panics, stops dispatching once the context is cancelled and reports
// progress. Results are returned in item order, so callers never depend on
// completion order.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
)

// ProgressFunc receives the number of completed items. Calls are serialised.
type ProgressFunc func(done, total int)

// Config configures a Run.
type Config struct {
	Name     string
	Workers  int // 0 = auto (logical CPUs)
	Progress ProgressFunc
	Logger   *zap.Logger
	Active   prometheus.Gauge
}

// Option configures a Run.
type Option func(*Config)

// WithWorkers sets the pool size. n <= 0 sizes the pool from the CPU count.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) { c.Progress = fn }
}

// WithName names the run in log lines.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithActiveGauge tracks busy workers on g.
func WithActiveGauge(g prometheus.Gauge) Option {
	return func(c *Config) { c.Active = g }
}

// Serial appends a single-worker option to opts.
func Serial(opts ...Option) []Option {
	return append(opts, WithWorkers(1))
}

var (
	cpuOnce  sync.Once
	cpuCount int
)

// DefaultWorkers returns the logical CPU count.
func DefaultWorkers() int {
	cpuOnce.Do(func() {
		n, err := cpu.Counts(true)
		if err != nil || n <= 0 {
			n = runtime.NumCPU()
		}
		cpuCount = n
	})
	return cpuCount
}

// ItemError is the failure of one item.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Results holds the outcome of a Run. Values and OK are indexed like the input.
type Results[R any] struct {
	Values     []R
	OK         []bool
	Errors     []ItemError
	Cancelled  bool
	Dispatched int
	Duration   time.Duration
}

// Collect returns the successful values in item order.
func (r *Results[R]) Collect() []R {
	out := make([]R, 0, len(r.Values))
	for i, v := range r.Values {
		if r.OK[i] {
			out = append(out, v)
		}
	}
	return out
}

// Failed returns the number of failed items.
func (r *Results[R]) Failed() int {
	return len(r.Errors)
}

// Run processes items with worker. A worker error or panic is recorded for its
// item only. After ctx is cancelled no further items are dispatched; items
// already running complete.
func Run[T, R any](ctx context.Context, items []T, worker func(context.Context, T) (R, error), opts ...Option) *Results[R] {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}

	total := len(items)
	res := &Results[R]{
		Values: make([]R, total),
		OK:     make([]bool, total),
	}
	if total == 0 {
		if cfg.Progress != nil {
			cfg.Progress(0, 0)
		}
		return res
	}

	workers := cfg.Workers
	if workers > total {
		workers = total
	}
	start := time.Now()
	log := cfg.Logger.With(zap.String("run", cfg.Name))
	log.Debug("Dispatching items", zap.Int("items", total), zap.Int("workers", workers))

	var (
		errMu      sync.Mutex
		progressMu sync.Mutex
		done       int64
		wg         sync.WaitGroup
	)
	// at most 19 intermediate notifications plus the final one
	step := (total + 19) / 20

	indices := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if cfg.Active != nil {
					cfg.Active.Inc()
				}
				v, err := safeCall(ctx, items[i], worker)
				if cfg.Active != nil {
					cfg.Active.Dec()
				}

				if err != nil {
					errMu.Lock()
					res.Errors = append(res.Errors, ItemError{Index: i, Err: err})
					errMu.Unlock()
				} else {
					res.Values[i] = v
					res.OK[i] = true
				}

				n := atomic.AddInt64(&done, 1)
				if cfg.Progress != nil && n%int64(step) == 0 && int(n) != total {
					progressMu.Lock()
					cfg.Progress(int(n), total)
					progressMu.Unlock()
				}
			}
		}()
	}

dispatch:
	for i := range items {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		select {
		case indices <- i:
			res.Dispatched++
		case <-ctx.Done():
			res.Cancelled = true
			break dispatch
		}
	}
	close(indices)
	wg.Wait()

	sort.Slice(res.Errors, func(a, b int) bool { return res.Errors[a].Index < res.Errors[b].Index })
	res.Duration = time.Since(start)

	if cfg.Progress != nil {
		progressMu.Lock()
		cfg.Progress(int(atomic.LoadInt64(&done)), total)
		progressMu.Unlock()
	}

	log.Debug("Run finished",
		zap.Int("dispatched", res.Dispatched),
		zap.Int("failed", len(res.Errors)),
		zap.Bool("cancelled", res.Cancelled),
		zap.Duration("duration", res.Duration))
	return res
}

func safeCall[T, R any](ctx context.Context, item T, worker func(context.Context, T) (R, error)) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeGeneration, "panic: %v", r).
				WithDetail("stack", string(debug.Stack()))
		}
	}()
	return worker(ctx, item)
}
