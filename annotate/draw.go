package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// labelFace is the bitmap face used for labels.
var labelFace = basicfont.Face7x13

// labelGap is the distance between a label baseline and the top of its box.
const labelGap = 5

// drawRect draws an outline of the given thickness inside r, clipped to the image.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)

	for t := 0; t < thickness; t++ {
		in := image.Rect(r.Min.X+t, r.Min.Y+t, r.Max.X-t, r.Max.Y-t)
		if in.Empty() {
			return
		}
		draw.Draw(img, image.Rect(in.Min.X, in.Min.Y, in.Max.X, in.Min.Y+1), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(in.Min.X, in.Max.Y-1, in.Max.X, in.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(in.Min.X, in.Min.Y, in.Min.X+1, in.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(in.Max.X-1, in.Min.Y, in.Max.X, in.Max.Y), src, image.Point{}, draw.Src)
	}
}

// labelBaseline returns the baseline for a label above a box whose top edge is at y. The label
// is pushed down so it never leaves the top of the image.
func labelBaseline(y int) int {
	return max(labelFace.Metrics().Ascent.Ceil(), y-labelGap)
}

// drawLabel writes text with its baseline just above (x, y).
func drawLabel(img *image.RGBA, text string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: labelFace,
		Dot:  fixed.P(x, labelBaseline(y)),
	}
	d.DrawString(text)
}

// fillCircle draws a filled disc centered at p.
func fillCircle(img *image.RGBA, p image.Point, radius int, c color.RGBA) {
	b := img.Bounds()
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			q := image.Pt(p.X+dx, p.Y+dy)
			if q.In(b) {
				img.SetRGBA(q.X, q.Y, c)
			}
		}
	}
}
