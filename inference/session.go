// Package inference - Inference sessions.
package inference

import (
	"context"
	"os"
	"slices"
	"sync"

	"github.com/nvr-ai/roi-detect/inference/providers"
	"github.com/nvr-ai/roi-detect/models/model"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// environment guards the process-wide ONNX Runtime initialization.
var environment sync.Mutex

// Session is an ONNX Runtime model session with preallocated input and output tensors.
//
// Run copies into the bound input tensor and out of the bound output tensor, so calls are
// serialized with a mutex.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	logger  *zap.SugaredLogger
}

// SessionArgs represents the arguments for creating a new session.
type SessionArgs struct {
	Model         model.Config
	NumClasses    int
	Provider      providers.Config
	SharedLibrary string
}

// NewSession creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Library path check: Ensures the native runtime is accessible.
//  2. Environment setup: Initializes ONNX Runtime once per process.
//  3. Tensor allocation: Prepares fixed-shape buffers for input/output data.
//  4. Session options: Threading, graph optimization and the execution provider.
//  5. Session creation: Loads the model and binds the tensors.
//  6. Warmup: Optional inference runs on a zeroed input.
//
// Arguments:
//   - args: The session arguments.
//   - logger: The logger.
//
// Returns:
//   - *Session: The session, ready for Run.
//   - error: An error if any step fails; partially created native resources are released.
func NewSession(args SessionArgs, logger *zap.SugaredLogger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := initEnvironment(args.SharedLibrary); err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(args.Model.InputShape()...)
	outputShape := ort.NewShape(args.Model.OutputShape(args.NumClasses)...)
	if dims, err := declaredOutputShape(args.Model); err != nil {
		return nil, err
	} else if dims != nil {
		outputShape = dims
	}

	s := &Session{logger: logger}

	var err error
	s.input, err = ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	s.output, err = ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "creating output tensor"), s.Close())
	}

	options, err := providers.NewSessionOptions(args.Provider, logger)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSession(
		args.Model.Path,
		[]string{args.Model.InputName},
		[]string{args.Model.OutputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		options,
	)
	if err != nil {
		return nil, multierr.Append(errors.Wrapf(err, "creating ORT session for %s", args.Model.Path), s.Close())
	}

	logger.Infow("onnxruntime session created",
		"model", args.Model.Path,
		"backend", args.Provider.Backend,
		"input", inputShape,
		"output", outputShape,
	)

	for i := 0; i < args.Provider.Warmup; i++ {
		if err := s.session.Run(); err != nil {
			return nil, multierr.Append(errors.Wrap(err, "warmup run"), s.Close())
		}
	}

	return s, nil
}

// Run executes the model on input.
//
// The context is checked before the call; the native run itself cannot be interrupted.
func (s *Session) Run(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "inference cancelled")
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input dtype %v, need float32", input.Dtype())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, ErrClosed
	}

	want := s.input.GetShape()
	if !sameShape(input.Shape(), want) {
		return nil, errors.Errorf("input shape %v does not match model input %v", input.Shape(), want)
	}
	copy(s.input.GetData(), data)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running ORT session")
	}

	out := slices.Clone(s.output.GetData())
	shape := s.output.GetShape()
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}

	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(out)), nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = multierr.Append(err, errors.Wrap(s.session.Destroy(), "destroying ORT session"))
		s.session = nil
	}
	if s.input != nil {
		err = multierr.Append(err, s.input.Destroy())
		s.input = nil
	}
	if s.output != nil {
		err = multierr.Append(err, s.output.Destroy())
		s.output = nil
	}
	return err
}

func initEnvironment(configured string) error {
	environment.Lock()
	defer environment.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	libPath, err := providers.GetSharedLibPath(configured)
	if err != nil {
		return err
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}

	ort.SetSharedLibraryPath(libPath)
	return errors.Wrap(ort.InitializeEnvironment(), "initializing ORT environment")
}

// declaredOutputShape reads the output dimensions from the model file when they are static.
func declaredOutputShape(cfg model.Config) (ort.Shape, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading model metadata from %s", cfg.Path)
	}

	if !slices.ContainsFunc(inputs, func(i ort.InputOutputInfo) bool { return i.Name == cfg.InputName }) {
		return nil, errors.Errorf("model has no input named %q", cfg.InputName)
	}

	for _, o := range outputs {
		if o.Name != cfg.OutputName {
			continue
		}
		for _, d := range o.Dimensions {
			if d <= 0 {
				return nil, nil
			}
		}
		return o.Dimensions, nil
	}

	return nil, errors.Errorf("model has no output named %q", cfg.OutputName)
}

func sameShape(got []int, want ort.Shape) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if int64(got[i]) != want[i] {
			return false
		}
	}
	return true
}
