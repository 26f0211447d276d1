package detector

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/models"
	"github.com/nvr-ai/roi-detect/models/postprocess"
	"github.com/nvr-ai/roi-detect/models/preprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

type fakeEngine struct {
	calls  atomic.Int32
	out    *tensor.Dense
	err    error
	shapes [][]int
}

func (f *fakeEngine) Run(_ context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	f.calls.Add(1)
	f.shapes = append(f.shapes, []int(input.Shape().Clone()))
	return f.out, f.err
}

func (f *fakeEngine) Close() error { return nil }

// output builds a (1, 6, N) tensor for the two inspection classes.
func output(cands ...postprocess.Candidate) *tensor.Dense {
	n := len(cands)
	data := make([]float32, 6*n)
	for i, c := range cands {
		data[0*n+i] = c.CX
		data[1*n+i] = c.CY
		data[2*n+i] = c.W
		data[3*n+i] = c.H
		data[(4+c.ClassID)*n+i] = c.Score
	}
	return tensor.New(tensor.WithShape(1, 6, n), tensor.WithBacking(data))
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 60
	}
	return img
}

func newDetector(t *testing.T, engine *fakeEngine, policy preprocess.Policy, cfg Config) *Detector {
	t.Helper()
	pre := preprocess.DefaultConfig()
	pre.InputWidth, pre.InputHeight, pre.Policy = 128, 128, policy

	d, err := New(Args{
		Engine:     engine,
		Preprocess: pre,
		Config:     cfg,
		Classes:    models.NewOutputClassSet(models.ModelFamilyInspection, models.InspectionClasses...),
		Style:      annotate.DefaultStyle(),
	})
	require.NoError(t, err)
	return d
}

func TestDetectMapsIntoImageSpace(t *testing.T) {
	engine := &fakeEngine{out: output(postprocess.Candidate{CX: 64, CY: 64, W: 32, H: 32, ClassID: 0, Score: 0.9})}
	d := newDetector(t, engine, preprocess.PolicyLetterbox, DefaultConfig())

	res, err := d.Detect(context.Background(), Request{Image: solid(200, 200), X1: 110, Y1: 110, X2: 10, Y2: 10})
	require.NoError(t, err)

	assert.Equal(t, images.Region{X1: 10, Y1: 10, X2: 110, Y2: 110}, res.Region)
	require.Len(t, res.Detections, 1)
	assert.Equal(t, images.Box{X: 37, Y: 37, W: 25, H: 25}, res.Local[0].Box)
	assert.Equal(t, images.Box{X: 47, Y: 47, W: 25, H: 25}, res.Detections[0].Box)
	assert.Equal(t, annotate.Counts{"pipe": 1}, res.Counts)
	assert.Equal(t, image.Rect(0, 0, 100, 100), res.Annotated.Bounds())
	assert.Equal(t, []int{1, 3, 128, 128}, engine.shapes[0])
}

func TestDetectSuppressesOverlaps(t *testing.T) {
	engine := &fakeEngine{out: output(
		postprocess.Candidate{CX: 57, CY: 50, W: 40, H: 40, ClassID: 1, Score: 0.4},
		postprocess.Candidate{CX: 50, CY: 50, W: 40, H: 40, ClassID: 1, Score: 0.9},
	)}
	cfg := DefaultConfig()
	cfg.NMS.ScoreThreshold = 0.3
	d := newDetector(t, engine, preprocess.PolicyStretch, cfg)

	res, err := d.Detect(context.Background(), Request{Image: solid(128, 128), X1: 0, Y1: 0, X2: 128, Y2: 128})
	require.NoError(t, err)

	require.Len(t, res.Detections, 1)
	assert.InDelta(t, 0.9, res.Detections[0].Score, 1e-6)
	assert.Equal(t, annotate.Counts{"muku": 1}, res.Counts)
}

func TestDetectEmptyRegionSkipsInference(t *testing.T) {
	engine := &fakeEngine{out: output()}
	d := newDetector(t, engine, preprocess.PolicyStretch, DefaultConfig())

	_, err := d.Detect(context.Background(), Request{Image: solid(200, 200), X1: 50, Y1: 50, X2: 50, Y2: 80})
	require.Error(t, err)
	assert.Equal(t, KindEmptyROI, KindOf(err))
	assert.True(t, errors.Is(err, images.ErrEmptyRegion))
	assert.Zero(t, engine.calls.Load())
}

func TestDetectNoDetectionsLeavesRegionUntouched(t *testing.T) {
	engine := &fakeEngine{out: output(postprocess.Candidate{CX: 10, CY: 10, W: 5, H: 5, Score: 0.1})}
	d := newDetector(t, engine, preprocess.PolicyStretch, DefaultConfig())

	src := solid(64, 48)
	res, err := d.Detect(context.Background(), Request{
		Image:   src,
		X2:      64,
		Y2:      48,
		Display: annotate.DisplayConfig{ShowBoxes: true, ShowLabels: true},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Detections)
	assert.Empty(t, res.Counts)
	assert.Equal(t, images.ComputeChecksum(src), images.ComputeChecksum(res.Annotated))
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestDetectInferenceFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("device lost")}
	d := newDetector(t, engine, preprocess.PolicyStretch, DefaultConfig())

	_, err := d.Detect(context.Background(), Request{Image: solid(32, 32), X2: 32, Y2: 32})
	require.Error(t, err)
	assert.Equal(t, KindInferenceFailed, KindOf(err))
	assert.Contains(t, err.Error(), "device lost")
}

func TestDetectBadOutputShape(t *testing.T) {
	engine := &fakeEngine{out: tensor.New(tensor.WithShape(2, 3, 4), tensor.WithBacking(make([]float32, 24)))}
	d := newDetector(t, engine, preprocess.PolicyStretch, DefaultConfig())

	_, err := d.Detect(context.Background(), Request{Image: solid(32, 32), X2: 32, Y2: 32})
	require.Error(t, err)
	assert.Equal(t, KindInferenceFailed, KindOf(err))
	assert.True(t, errors.Is(err, postprocess.ErrBadOutputShape))
}

func TestNewValidates(t *testing.T) {
	_, err := New(Args{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.NMS.IoUThreshold = 1.5
	_, err = New(Args{
		Engine:     &fakeEngine{},
		Preprocess: preprocess.DefaultConfig(),
		Config:     cfg,
		Classes:    models.NewOutputClassSet(models.ModelFamilyInspection, models.InspectionClasses...),
	})
	assert.Error(t, err)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeRequest(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	data := encodePNG(t, img)

	t.Run("valid", func(t *testing.T) {
		dec, err := DecodeRequest(RawRequest{Image: data, X1: "1", Y1: " 2", X2: "7", Y2: "5", Options: []string{"box"}})
		require.NoError(t, err)
		assert.Equal(t, 8, dec.Source.Width)
		assert.Equal(t, images.FormatPNG, dec.Source.Format)
		assert.Equal(t, []int{1, 2, 7, 5}, []int{dec.X1, dec.Y1, dec.X2, dec.Y2})
		assert.True(t, dec.Display.ShowBoxes)
		assert.False(t, dec.Display.ShowLabels)
	})

	t.Run("missing image", func(t *testing.T) {
		_, err := DecodeRequest(RawRequest{X1: "0", Y1: "0", X2: "1", Y2: "1"})
		assert.Equal(t, KindMissingImage, KindOf(err))
	})

	t.Run("invalid image", func(t *testing.T) {
		_, err := DecodeRequest(RawRequest{Image: []byte("not an image"), X1: "0", Y1: "0", X2: "1", Y2: "1"})
		assert.Equal(t, KindInvalidImage, KindOf(err))
	})

	t.Run("invalid roi", func(t *testing.T) {
		_, err := DecodeRequest(RawRequest{Image: data, X1: "a", Y1: "0", X2: "1.5", Y2: "1"})
		assert.Equal(t, KindInvalidROI, KindOf(err))
		assert.Contains(t, err.Error(), "x1")
		assert.Contains(t, err.Error(), "x2")
	})
}
