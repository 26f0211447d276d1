// Package profiler times pipeline stages and reports runtime statistics.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options configures the profiler.
type Options struct {
	// MaxSamples bounds the durations kept per operation (default: 600).
	MaxSamples int
	// Registerer receives the stage histogram; nil skips Prometheus export.
	Registerer prometheus.Registerer
	// Namespace prefixes the histogram name.
	Namespace string
}

// Profiler tracks operation timing statistics.
//
// A nil *Profiler is valid and records nothing.
type Profiler struct {
	mu             sync.Mutex
	maxSamples     int
	startTime      time.Time
	operationTimes map[string]*TimeTracker
	histogram      *prometheus.HistogramVec
}

// TimeTracker tracks operation timing statistics over a sliding window of samples.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// OperationStats is a snapshot of a TimeTracker.
type OperationStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// New creates a profiler.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured Profiler instance
// - An error if the histogram cannot be registered
func New(opts Options) (*Profiler, error) {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}

	p := &Profiler{
		maxSamples:     opts.MaxSamples,
		startTime:      time.Now(),
		operationTimes: make(map[string]*TimeTracker),
	}

	if opts.Registerer != nil {
		p.histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of detection pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"stage"})
		if err := opts.Registerer.Register(p.histogram); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

// record records the completion time of an operation.
func (p *Profiler) record(name string, duration time.Duration) {
	if p.histogram != nil {
		p.histogram.WithLabelValues(name).Observe(duration.Seconds())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{minTime: duration, maxTime: duration}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
	tracker.count++
}

// Snapshot returns the statistics of every operation, sorted by name.
func (p *Profiler) Snapshot() []OperationStats {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]OperationStats, 0, len(p.operationTimes))
	for name, t := range p.operationTimes {
		s := OperationStats{Name: name, Count: t.count, Min: t.minTime, Max: t.maxTime}
		if n := len(t.durations); n > 0 {
			s.Avg = t.totalTime / time.Duration(n)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset discards the collected samples. The Prometheus histogram is not affected.
func (p *Profiler) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operationTimes = make(map[string]*TimeTracker)
	p.startTime = time.Now()
}

// Report logs the operation statistics and a runtime summary.
func (p *Profiler) Report(logger *zap.SugaredLogger) {
	if p == nil {
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	logger.Infow("runtime",
		"uptime", time.Since(p.startTime).Round(time.Second),
		"goroutines", runtime.NumGoroutine(),
		"heap_alloc_mb", mem.HeapAlloc/1024/1024,
		"gc", mem.NumGC,
	)
	for _, s := range p.Snapshot() {
		logger.Infow("stage", "name", s.Name, "count", s.Count, "avg", s.Avg, "min", s.Min, "max", s.Max)
	}
}

// Run emits a report every interval until ctx is done.
func (p *Profiler) Run(ctx context.Context, interval time.Duration, logger *zap.SugaredLogger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Report(logger)
		}
	}
}
