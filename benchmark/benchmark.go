package benchmark

import (
	"context"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/nvr-ai/roi-detect/detector"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/profiler"
	"github.com/nvr-ai/roi-detect/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detector runs one detection call.
type Detector interface {
	Detect(ctx context.Context, req detector.Request) (*detector.Result, error)
}

// PerformanceMetrics captures the outcome of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario                  `json:"scenario"`
	Timestamp       time.Time                 `json:"timestamp"`
	TotalDuration   time.Duration             `json:"total_duration"`
	FramesPerSecond float64                   `json:"frames_per_second"`
	Stages          []profiler.OperationStats `json:"stages"`
	MemoryStats     MemoryMetrics             `json:"memory_stats"`
	DetectionCount  int                       `json:"detection_count"`
	ErrorRate       float64                   `json:"error_rate"`
	Errors          map[detector.Kind]int     `json:"errors,omitempty"`
}

// MemoryMetrics captures memory usage statistics.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Suite runs scenarios against decoded frames.
type Suite struct {
	detector Detector
	profiler *profiler.Profiler
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	frames  []image.Image
	results []PerformanceMetrics
}

// NewSuite creates a suite.
//
// Arguments:
//   - det: The detector under test.
//   - prof: The profiler the detector records stage timings in, may be nil.
//   - logger: The logger.
//
// Returns:
//   - *Suite: The suite, without frames.
func NewSuite(det Detector, prof *profiler.Profiler, logger *zap.SugaredLogger) *Suite {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Suite{detector: det, profiler: prof, logger: logger}
}

// AddFrames appends decoded frames.
func (s *Suite) AddFrames(frames ...image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

// LoadFrames decodes image files and appends them; undecodable files are skipped.
func (s *Suite) LoadFrames(files []util.ImageFile) error {
	var frames []image.Image
	for _, f := range files {
		img, _, err := images.Decode(f.Data)
		if err != nil {
			s.logger.Warnw("skipping frame", "path", f.Path, "error", err)
			continue
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return errors.New("no decodable frames")
	}
	s.AddFrames(frames...)
	return nil
}

// RunScenario executes a single scenario.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	frames := make([]image.Image, len(s.frames))
	copy(frames, s.frames)
	s.mu.RUnlock()
	if len(frames) == 0 {
		return nil, errors.New("no frames loaded")
	}

	if r := scenario.Resolution; r.Width > 0 {
		for i, f := range frames {
			frames[i] = images.Resize(f, r.Width, r.Height)
		}
	}

	request := func(i int) detector.Request {
		return detector.Request{
			Image:   frames[i%len(frames)],
			X1:      scenario.Region.X1,
			Y1:      scenario.Region.Y1,
			X2:      scenario.Region.X2,
			Y2:      scenario.Region.Y2,
			Display: scenario.Display,
		}
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := s.detector.Detect(ctx, request(i)); err != nil {
			s.logger.Debugw("warmup run failed", "scenario", scenario.Name, "error", err)
		}
	}
	s.profiler.Reset()

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{Scenario: scenario, Timestamp: time.Now()}
	failures := 0
	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.detector.Detect(ctx, request(i))
		if err != nil {
			failures++
			if metrics.Errors == nil {
				metrics.Errors = make(map[detector.Kind]int)
			}
			metrics.Errors[detector.KindOf(err)]++
			continue
		}
		metrics.DetectionCount += len(res.Detections)
	}
	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	metrics.FramesPerSecond = float64(scenario.Iterations) / metrics.TotalDuration.Seconds()
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.Stages = s.profiler.Snapshot()
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
	}

	return metrics, nil
}

// RunAll executes every scenario; a failing scenario is logged and skipped.
func (s *Suite) RunAll(ctx context.Context, scenarios []Scenario) []PerformanceMetrics {
	for _, scenario := range scenarios {
		m, err := s.RunScenario(ctx, scenario)
		if err != nil {
			s.logger.Errorw("scenario failed", "scenario", scenario.Name, "error", err)
			continue
		}
		s.logger.Infow("scenario completed",
			"scenario", scenario.Name,
			"fps", m.FramesPerSecond,
			"detections", m.DetectionCount,
			"error_rate", m.ErrorRate,
		)

		s.mu.Lock()
		s.results = append(s.results, *m)
		s.mu.Unlock()
	}
	return s.Results()
}

// Results returns all collected results.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]PerformanceMetrics, len(s.results))
	copy(results, s.results)
	return results
}
