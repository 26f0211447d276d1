// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"

	"github.com/nvr-ai/roi-detect/inference/opencv"
	"github.com/nvr-ai/roi-detect/inference/providers"
	"github.com/nvr-ai/roi-detect/models/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// ErrClosed is returned by Run after Close, by every engine.
var ErrClosed = opencv.ErrClosed

// Engine runs an opaque detection model on a fixed-shape input tensor.
//
// Implementations must be safe for concurrent use; both bundled engines serialize Run with a
// mutex because they bind preallocated native buffers.
type Engine interface {
	// Run executes the model on input shaped [1, 3, H, W] and returns the raw output tensor.
	Run(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	// Close releases native resources.
	Close() error
}

// Config selects and configures an engine.
type Config struct {
	Backend  EngineType       `json:"backend" yaml:"backend"`
	Model    model.Config     `json:"model" yaml:"model"`
	Provider providers.Config `json:"provider" yaml:"provider"`
	// SharedLibrary is the ONNX Runtime library path; empty uses the platform default.
	SharedLibrary string `json:"shared_library" yaml:"shared_library"`
}

// New creates the configured engine.
//
// Arguments:
//   - cfg: The engine configuration.
//   - numClasses: The number of classes the model emits.
//   - logger: The logger.
//
// Returns:
//   - Engine: The loaded engine.
//   - error: An error if the backend is unknown or the model fails to load.
func New(cfg Config, numClasses int, logger *zap.SugaredLogger) (Engine, error) {
	if err := cfg.Model.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case EngineONNXRuntime, "":
		return NewSession(SessionArgs{
			Model:         cfg.Model,
			NumClasses:    numClasses,
			Provider:      cfg.Provider,
			SharedLibrary: cfg.SharedLibrary,
		}, logger)
	case EngineOpenCV:
		net, err := opencv.Open(cfg.Model, opencv.TargetForBackend(string(cfg.Provider.Backend)))
		if err != nil {
			return nil, err
		}
		logger.Infow("opencv dnn engine loaded", "model", cfg.Model.Path)
		return net, nil
	default:
		return nil, errors.Errorf("unknown inference backend %q", cfg.Backend)
	}
}

// NewInputTensor wraps CHW data in a tensor of the given shape.
func NewInputTensor(data []float32, shape []int64) *tensor.Dense {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data))
}
