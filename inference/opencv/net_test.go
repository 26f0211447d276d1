package opencv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/roi-detect/models/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorgonia.org/tensor"
)

func TestTargetForBackend(t *testing.T) {
	assert.Equal(t, TargetCUDA, TargetForBackend("CUDA"))
	assert.Equal(t, TargetCPU, TargetForBackend("openvino"))
	assert.Equal(t, TargetCPU, TargetForBackend(""))
}

func TestOpenMissingModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "missing.onnx")

	_, err := Open(cfg, TargetCPU)
	assert.Error(t, err)
}

func TestClosedNet(t *testing.T) {
	n := &Net{inputShape: []int{1, 3, 2, 2}}
	assert.NoError(t, n.Close())

	_, err := n.Run(canceled(), nil)
	assert.Error(t, err)

	input := tensor.New(tensor.WithShape(1, 3, 2, 2), tensor.WithBacking(make([]float32, 12)))
	_, err = n.Run(context.Background(), input)
	assert.True(t, errors.Is(err, ErrClosed))
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
