// Package providers - Execution provider selection for ONNX Runtime sessions.
package providers

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
)

// Backends lists every supported backend.
var Backends = []ProviderBackend{
	CPUProviderBackend,
	CUDAProviderBackend,
	CoreMLProviderBackend,
	OpenVINOProviderBackend,
}

// ParseBackend converts a configuration string into a backend. An empty string selects CPU.
func ParseBackend(s string) (ProviderBackend, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CPUProviderBackend, nil
	}
	for _, b := range Backends {
		if string(b) == s {
			return b, nil
		}
	}
	return "", errors.Errorf("unknown execution provider %q", s)
}

// Config represents the execution configuration of an ONNX Runtime session.
type Config struct {
	// Backend specifies the execution provider to use.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// Fallback continues on CPU when the requested provider cannot be enabled.
	Fallback bool `json:"fallback" yaml:"fallback"`
	// IntraOpThreads and InterOpThreads size the runtime thread pools; 0 lets the runtime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// Warmup is the number of inference runs performed after the session is created.
	Warmup int `json:"warmup" yaml:"warmup"`

	CUDA     CUDAOptions     `json:"cuda" yaml:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml" yaml:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns CUDA with CPU fallback on linux and windows, CPU elsewhere.
func DefaultConfig() Config {
	cfg := Config{Backend: CPUProviderBackend, Fallback: true}
	if runtime.GOOS == "linux" || runtime.GOOS == "windows" {
		cfg.Backend = CUDAProviderBackend
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	if c.Warmup < 0 {
		return errors.New("warmup must not be negative")
	}
	return nil
}

// NewSessionOptions creates ONNX Runtime session options for the configuration.
//
// Threading and graph optimization are applied first, then the execution provider. When the
// provider cannot be enabled and Fallback is set, a warning is logged and the session runs on
// CPU.
//
// **The caller must Destroy the returned options.**
//
// Arguments:
//   - cfg: The execution configuration.
//   - logger: The logger used for fallback warnings.
//
// Returns:
//   - *ort.SessionOptions: The configured options.
//   - error: An error if the options cannot be created or the provider fails without fallback.
func NewSessionOptions(cfg Config, logger *zap.SugaredLogger) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating ORT session options")
	}

	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting graph optimization level")
	}

	if err := appendProvider(options, cfg); err != nil {
		if !cfg.Fallback {
			options.Destroy()
			return nil, err
		}
		logger.Warnw("execution provider unavailable, falling back to cpu", "backend", cfg.Backend, "error", err)
	}

	return options, nil
}

func appendProvider(options *ort.SessionOptions, cfg Config) error {
	switch cfg.Backend {
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "creating CUDA options")
		}
		defer cuda.Destroy()

		if err := cuda.Update(cfg.CUDA.ToMap()); err != nil {
			return errors.Wrap(err, "updating CUDA options")
		}
		return errors.Wrap(options.AppendExecutionProviderCUDA(cuda), "enabling CUDA")
	case CoreMLProviderBackend:
		return errors.Wrap(options.AppendExecutionProviderCoreML(cfg.CoreML.Flags()), "enabling CoreML")
	case OpenVINOProviderBackend:
		return errors.Wrap(options.AppendExecutionProviderOpenVINO(cfg.OpenVINO.ToMap()), "enabling OpenVINO")
	default:
		return nil
	}
}
