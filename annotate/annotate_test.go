package annotate

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/models"
	"github.com/nvr-ai/roi-detect/models/postprocess"
	"github.com/stretchr/testify/assert"
)

var gray = color.RGBA{R: 40, G: 40, B: 40, A: 255}

func region(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = gray.R, gray.G, gray.B, gray.A
	}
	return img
}

func newAnnotator() *Annotator {
	return NewAnnotator(models.NewOutputClassSet(models.ModelFamilyInspection, "pipe", "muku"), DefaultStyle())
}

func TestParseDisplayOptions(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   DisplayConfig
	}{
		{"none", nil, DisplayConfig{}},
		{"box", []string{"Box"}, DisplayConfig{ShowBoxes: true}},
		{"label", []string{"Label"}, DisplayConfig{ShowLabels: true}},
		{"both repeated", []string{"Box", "Label"}, DisplayConfig{ShowBoxes: true, ShowLabels: true}},
		{"comma separated mixed case", []string{"box, LABEL"}, DisplayConfig{ShowBoxes: true, ShowLabels: true}},
		{"unknown ignored", []string{"Mask", "Heatmap"}, DisplayConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDisplayOptions(tt.tokens)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !tt.want.ShowBoxes && !tt.want.ShowLabels, got.Markers())
		})
	}
}

// TestAnnotateNoDetections checks the output is pixel identical to the input when nothing was
// detected, whatever the display options.
func TestAnnotateNoDetections(t *testing.T) {
	src := region(64, 48)
	want := images.ComputeChecksum(src)

	for _, display := range []DisplayConfig{{}, {ShowBoxes: true}, {ShowBoxes: true, ShowLabels: true}} {
		out, counts := newAnnotator().Annotate(src, nil, display)
		assert.Equal(t, want, images.ComputeChecksum(out))
		assert.Empty(t, counts)
	}
}

func TestAnnotateBoxes(t *testing.T) {
	src := region(100, 100)
	before := images.ComputeChecksum(src)
	dets := []postprocess.Detection{
		{Box: images.Box{X: 20, Y: 30, W: 40, H: 20}, Score: 0.9, ClassID: 0},
		{Box: images.Box{X: 70, Y: 70, W: 10, H: 10}, Score: 0.6, ClassID: 1},
		{Box: images.Box{X: 0, Y: 0, W: 5, H: 5}, Score: 0.7, ClassID: 0},
	}

	out, counts := newAnnotator().Annotate(src, dets, DisplayConfig{ShowBoxes: true})

	assert.Equal(t, Counts{"pipe": 2, "muku": 1}, counts)
	assert.Equal(t, before, images.ComputeChecksum(src), "source must not be modified")

	green := color.RGBA{G: 255, A: 255}
	assert.Equal(t, green, out.RGBAAt(20, 30))
	assert.Equal(t, green, out.RGBAAt(21, 31), "second pixel of the 2px outline")
	assert.Equal(t, green, out.RGBAAt(59, 49))
	assert.Equal(t, gray, out.RGBAAt(40, 40), "box interior untouched")
	assert.Equal(t, gray, out.RGBAAt(10, 90))
	// No markers when boxes are requested.
	assert.Equal(t, gray, out.RGBAAt(75, 75))
}

func TestAnnotateLabels(t *testing.T) {
	a := newAnnotator()
	d := postprocess.Detection{Box: images.Box{X: 2, Y: 0, W: 60, H: 30}, Score: 0.875, ClassID: 0}
	assert.Equal(t, "pipe 87.5%", a.Label(d))
	assert.Equal(t, "class_9 50.0%", a.Label(postprocess.Detection{ClassID: 9, Score: 0.5}))

	out, _ := a.Annotate(region(100, 40), []postprocess.Detection{d}, DisplayConfig{ShowLabels: true})

	// A box touching the top edge still gets a visible label inside the buffer.
	assert.Equal(t, 11, labelBaseline(0))
	assert.Equal(t, 45, labelBaseline(50))
	assert.True(t, hasColor(out, image.Rect(0, 0, 100, 12), color.RGBA{G: 255, A: 255}))
	// Labels only, no outline.
	assert.Equal(t, gray, out.RGBAAt(61, 29))
}

func TestAnnotateMarkers(t *testing.T) {
	style := DefaultStyle()
	dets := []postprocess.Detection{
		{Box: images.Box{X: 10, Y: 10, W: 20, H: 20}, Score: 0.9, ClassID: 0},
		{Box: images.Box{X: 50, Y: 50, W: 20, H: 20}, Score: 0.8, ClassID: 1},
		{Box: images.Box{X: 0, Y: 0, W: 2, H: 2}, Score: 0.8, ClassID: 7},
	}

	out, counts := newAnnotator().Annotate(region(80, 80), dets, DisplayConfig{})

	assert.Equal(t, style.Palette[0], out.RGBAAt(20, 20))
	assert.Equal(t, style.Palette[1], out.RGBAAt(60, 60))
	assert.Equal(t, style.Palette[7%len(style.Palette)], out.RGBAAt(1, 1))
	assert.Equal(t, gray, out.RGBAAt(10, 10), "box corner untouched by marker")
	assert.Equal(t, Counts{"pipe": 1, "muku": 1, "class_7": 1}, counts)
}

func hasColor(img *image.RGBA, r image.Rectangle, c color.RGBA) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				return true
			}
		}
	}
	return false
}
