package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/models"
	"github.com/nvr-ai/roi-detect/models/postprocess"
)

// Counts maps a class name to the number of retained detections of that class.
type Counts map[string]int

// Style controls how detections are drawn.
type Style struct {
	BoxColor     color.RGBA
	LabelColor   color.RGBA
	Thickness    int
	MarkerRadius int
	// Palette colors centroid markers by class id.
	Palette []color.RGBA
}

// DefaultStyle returns green 2px boxes and labels, and a class-keyed marker palette.
func DefaultStyle() Style {
	return Style{
		BoxColor:     color.RGBA{G: 255, A: 255},
		LabelColor:   color.RGBA{G: 255, A: 255},
		Thickness:    2,
		MarkerRadius: 4,
		Palette: []color.RGBA{
			{R: 255, A: 255},
			{B: 255, A: 255},
			{R: 255, G: 255, A: 255},
			{R: 255, B: 255, A: 255},
			{G: 255, B: 255, A: 255},
			{R: 255, G: 128, A: 255},
		},
	}
}

// Annotator counts and draws detections.
type Annotator struct {
	classes *models.OutputClassSet
	style   Style
}

// NewAnnotator creates an annotator resolving class names from classes.
func NewAnnotator(classes *models.OutputClassSet, style Style) *Annotator {
	if style.Thickness <= 0 {
		style.Thickness = 1
	}
	if len(style.Palette) == 0 {
		style.Palette = DefaultStyle().Palette
	}
	return &Annotator{classes: classes, style: style}
}

// Count tallies detections per class name.
func (a *Annotator) Count(dets []postprocess.Detection) Counts {
	counts := make(Counts, len(dets))
	for _, d := range dets {
		counts[a.classes.Name(d.ClassID)]++
	}
	return counts
}

// Label formats the label of a detection, e.g. "pipe 87.5%".
func (a *Annotator) Label(d postprocess.Detection) string {
	return fmt.Sprintf("%s %.1f%%", a.classes.Name(d.ClassID), d.Score*100)
}

// Annotate draws detections onto a copy of region and returns it with the per-class counts.
//
// Boxes must be in region-local coordinates. The input image is never modified, and with no
// detections the returned buffer is pixel identical to it.
//
// Arguments:
//   - region: The region buffer.
//   - dets: Retained detections in region space.
//   - display: What to draw.
//
// Returns:
//   - *image.RGBA: The annotated copy.
//   - Counts: Detections per class name.
func (a *Annotator) Annotate(region image.Image, dets []postprocess.Detection, display DisplayConfig) (*image.RGBA, Counts) {
	out := images.Clone(region)

	for _, d := range dets {
		if display.ShowBoxes {
			drawRect(out, d.Box.Rect().Rectangle(), a.style.BoxColor, a.style.Thickness)
		}
		if display.ShowLabels {
			drawLabel(out, a.Label(d), d.Box.X, d.Box.Y, a.style.LabelColor)
		}
		if display.Markers() {
			c := a.style.Palette[paletteIndex(d.ClassID, len(a.style.Palette))]
			fillCircle(out, d.Box.Center(), a.style.MarkerRadius, c)
		}
	}

	return out, a.Count(dets)
}

func paletteIndex(classID, n int) int {
	i := classID % n
	if i < 0 {
		i += n
	}
	return i
}
