package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/models/preprocess"
)

// Space selects the coordinate space mapped detections are reported in.
type Space int

const (
	// SpaceRegion reports boxes relative to the region's top-left corner.
	SpaceRegion Space = iota
	// SpaceImage reports boxes in original image coordinates.
	SpaceImage
)

// Mapper inverts the geometric transform for one request.
type Mapper struct {
	Params preprocess.Params
	Region images.Region
}

// NewMapper creates a mapper for the given transform and region.
func NewMapper(params preprocess.Params, region images.Region) Mapper {
	return Mapper{Params: params, Region: region}
}

// Map converts a candidate from model-input space into an integer pixel box.
//
// The center form is converted to a top-left corner, the transform is inverted, the values are
// truncated toward zero and the box is clipped to the region so that 0 <= X < width and
// X+W <= width (likewise for Y). The box may be degenerate (W or H of 0) but is always
// produced.
//
// Arguments:
//   - c: The candidate.
//   - space: SpaceRegion or SpaceImage.
//
// Returns:
//   - Detection: The mapped detection.
func (m Mapper) Map(c Candidate, space Space) Detection {
	fx, fy := m.Params.Inverse(c.CX-c.W/2, c.CY-c.H/2)
	fw, fh := m.Params.InverseSize(c.W, c.H)

	x, w := clip(int(math32.Trunc(fx)), int(math32.Trunc(fw)), m.Region.Width())
	y, h := clip(int(math32.Trunc(fy)), int(math32.Trunc(fh)), m.Region.Height())

	box := images.Box{X: x, Y: y, W: w, H: h}
	if space == SpaceImage {
		box = box.Translate(m.Region.Origin())
	}

	return Detection{Box: box, Score: c.Score, ClassID: c.ClassID}
}

// MapAll maps every candidate, preserving order.
func (m Mapper) MapAll(cs Candidates, space Space) []Detection {
	out := make([]Detection, len(cs))
	for i, c := range cs {
		out[i] = m.Map(c, space)
	}
	return out
}

// clip intersects the span [start, start+length) with [0, limit) and returns the clipped start
// and length. A span entirely outside collapses to zero length.
func clip(start, length, limit int) (int, int) {
	end := start + max(length, 0)

	s := min(max(start, 0), limit)
	e := min(max(end, s), limit)

	return min(s, limit-1), e - s
}
