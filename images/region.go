package images

import (
	"image"

	"github.com/pkg/errors"
)

// ErrEmptyRegion is returned when a region collapses to zero width or height after clamping.
var ErrEmptyRegion = errors.New("empty region")

// Region is a canonical region of interest inside an image.
//
// After SelectRegion the invariant 0 <= X1 < X2 <= width and 0 <= Y1 < Y2 <= height holds.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the width of the region in pixels.
func (r Region) Width() int { return r.X2 - r.X1 }

// Height returns the height of the region in pixels.
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Origin returns the top-left corner of the region in image space.
func (r Region) Origin() image.Point { return image.Pt(r.X1, r.Y1) }

// Rectangle returns the region as an image.Rectangle.
func (r Region) Rectangle() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

// SelectRegion canonicalizes a user supplied two-corner region against the image bounds.
//
// The corners may be given in any order. Each axis is sorted and clamped into [0, width] and
// [0, height] respectively.
//
// Arguments:
//   - x1, y1, x2, y2: The two corners as supplied by the caller.
//   - width, height: The dimensions of the image the region refers to.
//
// Returns:
//   - Region: The canonical region.
//   - error: ErrEmptyRegion when the clamped region has zero width or height.
//
// @example
//
//	r, err := SelectRegion(110, 10, 10, 110, 200, 200) // Region{10, 10, 110, 110}
func SelectRegion(x1, y1, x2, y2, width, height int) (Region, error) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}

	r := Region{
		X1: clampInt(x1, 0, width),
		Y1: clampInt(y1, 0, height),
		X2: clampInt(x2, 0, width),
		Y2: clampInt(y2, 0, height),
	}
	if r.Width() <= 0 || r.Height() <= 0 {
		return Region{}, errors.Wrapf(ErrEmptyRegion, "region (%d,%d)-(%d,%d) in %dx%d image", x1, y1, x2, y2, width, height)
	}

	return r, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
