// Package opencv runs detection models through the OpenCV DNN module.
package opencv

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/nvr-ai/roi-detect/models/model"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// Target selects the device the network runs on.
type Target string

const (
	// TargetCPU runs on the CPU with the OpenCV backend.
	TargetCPU Target = "cpu"
	// TargetCUDA runs on the GPU with the CUDA backend.
	TargetCUDA Target = "cuda"
)

// TargetForBackend maps an execution provider name to a target. Anything but cuda selects CPU.
func TargetForBackend(backend string) Target {
	if strings.EqualFold(backend, string(TargetCUDA)) {
		return TargetCUDA
	}
	return TargetCPU
}

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("inference engine closed")

// Net handles ONNX model inference using gocv.ReadNet().
//
// gocv.Net is not safe for concurrent SetInput/Forward, so Run holds a mutex.
type Net struct {
	mu         sync.Mutex
	net        *gocv.Net
	inputName  string
	outputName string
	inputShape []int
}

// Open loads the model.
//
// Arguments:
//   - cfg: The model configuration.
//   - target: The device to run on.
//
// Returns:
//   - *Net: The loaded network.
//   - error: An error if the model file is missing or cannot be parsed.
func Open(cfg model.Config, target Target) (*Net, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.Path)
	}

	net := gocv.ReadNet(cfg.Path, "")
	if net.Empty() {
		return nil, errors.Errorf("failed to load ONNX model: %s", cfg.Path)
	}

	if target == TargetCUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendOpenCV)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	shape := cfg.InputShape()
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}

	return &Net{
		net:        &net,
		inputName:  cfg.InputName,
		outputName: cfg.OutputName,
		inputShape: dims,
	}, nil
}

// Run executes the network on input.
func (n *Net) Run(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "inference cancelled")
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input dtype %v, need float32", input.Dtype())
	}
	if !input.Shape().Eq(tensor.Shape(n.inputShape)) {
		return nil, errors.Errorf("input shape %v does not match model input %v", input.Shape(), n.inputShape)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.net == nil {
		return nil, ErrClosed
	}

	blob := gocv.NewMatWithSizes(n.inputShape, gocv.MatTypeCV32F)
	defer blob.Close()

	ptr, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "accessing input blob")
	}
	copy(ptr, data)

	n.net.SetInput(blob, n.inputName)
	out := n.net.Forward(n.outputName)
	defer out.Close()

	if out.Empty() {
		return nil, errors.New("forward pass returned no output")
	}

	values, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "reading output")
	}

	backing := make([]float32, len(values))
	copy(backing, values)

	return tensor.New(tensor.WithShape(out.Size()...), tensor.WithBacking(backing)), nil
}

// Close releases the network.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.net == nil {
		return nil
	}
	err := n.net.Close()
	n.net = nil
	return errors.Wrap(err, "closing opencv net")
}
