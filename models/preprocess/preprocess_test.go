package preprocess

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// TestComputeParams validates letterbox and stretch parameters for square and non-square sources.
func TestComputeParams(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		sw, sh int
		tw, th int
		want   Params
	}{
		{
			name:   "letterbox square",
			policy: PolicyLetterbox,
			sw:     100, sh: 100, tw: 128, th: 128,
			want: Params{Policy: PolicyLetterbox, SrcWidth: 100, SrcHeight: 100, DstWidth: 128, DstHeight: 128, Ratio: 1.28},
		},
		{
			name:   "letterbox wide",
			policy: PolicyLetterbox,
			sw:     200, sh: 100, tw: 128, th: 128,
			want: Params{Policy: PolicyLetterbox, SrcWidth: 200, SrcHeight: 100, DstWidth: 128, DstHeight: 128, Ratio: 0.64, PadY: 32},
		},
		{
			name:   "letterbox tall",
			policy: PolicyLetterbox,
			sw:     50, sh: 200, tw: 640, th: 640,
			want: Params{Policy: PolicyLetterbox, SrcWidth: 50, SrcHeight: 200, DstWidth: 640, DstHeight: 640, Ratio: 3.2, PadX: 240},
		},
		{
			name:   "stretch",
			policy: PolicyStretch,
			sw:     200, sh: 100, tw: 1280, th: 1280,
			want: Params{Policy: PolicyStretch, SrcWidth: 200, SrcHeight: 100, DstWidth: 1280, DstHeight: 1280, ScaleX: 6.4, ScaleY: 12.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeParams(tt.policy, tt.sw, tt.sh, tt.tw, tt.th)
			assert.Equal(t, tt.want.Policy, got.Policy)
			assert.InDelta(t, tt.want.Ratio, got.Ratio, 1e-5)
			assert.Equal(t, tt.want.PadX, got.PadX)
			assert.Equal(t, tt.want.PadY, got.PadY)
			assert.InDelta(t, tt.want.ScaleX, got.ScaleX, 1e-5)
			assert.InDelta(t, tt.want.ScaleY, got.ScaleY, 1e-5)
		})
	}
}

// TestRoundTrip checks that a point mapped forward and back lands within one pixel of itself.
func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, policy := range []Policy{PolicyLetterbox, PolicyStretch} {
		t.Run(string(policy), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				sw, sh := 1+rng.Intn(2000), 1+rng.Intn(2000)
				p := ComputeParams(policy, sw, sh, 640, 480)

				x, y := float32(rng.Intn(sw)), float32(rng.Intn(sh))
				fx, fy := p.Forward(x, y)
				bx, by := p.Inverse(fx, fy)

				assert.InDelta(t, x, bx, 1.0, "params %+v", p)
				assert.InDelta(t, y, by, 1.0, "params %+v", p)
			}
		})
	}
}

func TestTransformLetterbox(t *testing.T) {
	p := NewPreprocessor(Config{InputWidth: 64, InputHeight: 64, Policy: PolicyLetterbox}, nil)
	res := p.Transform(solidImage(64, 32, color.RGBA{R: 255, A: 255}))

	require.Len(t, res.Data, 3*64*64)
	assert.Equal(t, []int64{1, 3, 64, 64}, res.Shape)
	assert.Equal(t, 16, res.Params.PadY)
	assert.Equal(t, 0, res.Params.PadX)

	pad := float32(114) / 255
	// Top padding row is gray in every plane.
	assert.InDelta(t, pad, res.Data[0], 1e-6)
	assert.InDelta(t, pad, res.Data[64*64], 1e-6)
	assert.InDelta(t, pad, res.Data[2*64*64], 1e-6)

	// Center pixel is red content.
	center := 32*64 + 32
	assert.InDelta(t, 1.0, res.Data[center], 1e-6)
	assert.InDelta(t, 0.0, res.Data[64*64+center], 1e-6)
}

func TestTransformStretchBGR(t *testing.T) {
	p := NewPreprocessor(Config{InputWidth: 32, InputHeight: 16, Policy: PolicyStretch, ColorOrder: ColorOrderBGR}, nil)
	res := p.Transform(solidImage(10, 90, color.RGBA{R: 255, B: 0, A: 255}))

	assert.Equal(t, []int64{1, 3, 16, 32}, res.Shape)
	assert.InDelta(t, 3.2, res.Params.ScaleX, 1e-5)
	// Blue plane first in BGR.
	assert.InDelta(t, 0.0, res.Data[0], 0.01)
	assert.InDelta(t, 1.0, res.Data[2*32*16], 0.01)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{InputWidth: 0, InputHeight: 10, Policy: PolicyStretch, ColorOrder: ColorOrderRGB}.Validate())
	assert.Error(t, Config{InputWidth: 10, InputHeight: 10, Policy: "fit", ColorOrder: ColorOrderRGB}.Validate())
	assert.Error(t, Config{InputWidth: 10, InputHeight: 10, Policy: PolicyStretch, ColorOrder: "GBR"}.Validate())
}
