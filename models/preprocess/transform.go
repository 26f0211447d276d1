package preprocess

import (
	"github.com/chewxy/math32"
)

// Policy selects how a region is mapped into the fixed-size model input.
type Policy string

const (
	// PolicyLetterbox scales uniformly and pads the remainder with a constant color.
	PolicyLetterbox Policy = "letterbox"
	// PolicyStretch scales each axis independently to fill the input exactly.
	PolicyStretch Policy = "stretch"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyLetterbox || p == PolicyStretch
}

// Params records the forward transform from a region buffer to model-input space so that
// model outputs can be mapped back.
//
// For PolicyLetterbox only Ratio, PadX and PadY are meaningful. For PolicyStretch only ScaleX
// and ScaleY are meaningful. All scale factors are strictly positive.
type Params struct {
	Policy Policy

	// SrcWidth, SrcHeight are the dimensions of the region buffer.
	SrcWidth, SrcHeight int
	// DstWidth, DstHeight are the dimensions of the model input.
	DstWidth, DstHeight int

	// Ratio is the uniform letterbox scale.
	Ratio float32
	// PadX, PadY are the left and top letterbox padding in model-input pixels.
	PadX, PadY int
	// ScaleX, ScaleY are the per-axis stretch scales.
	ScaleX, ScaleY float32
}

// ComputeParams derives the transform parameters for a source of sw x sh pixels.
//
// Arguments:
//   - policy: The transform policy.
//   - sw, sh: The source (region) dimensions. Both must be positive.
//   - tw, th: The model input dimensions. Both must be positive.
//
// Returns:
//   - Params: The forward transform parameters.
//
// @example
//
//	p := ComputeParams(PolicyLetterbox, 100, 100, 128, 128) // Ratio 1.28, PadX 0, PadY 0
func ComputeParams(policy Policy, sw, sh, tw, th int) Params {
	p := Params{
		Policy:    policy,
		SrcWidth:  sw,
		SrcHeight: sh,
		DstWidth:  tw,
		DstHeight: th,
	}

	if policy == PolicyStretch {
		p.ScaleX = float32(tw) / float32(sw)
		p.ScaleY = float32(th) / float32(sh)
		return p
	}

	p.Ratio = math32.Min(float32(tw)/float32(sw), float32(th)/float32(sh))
	nw, nh := p.ScaledSize()
	p.PadX = (tw - nw) / 2
	p.PadY = (th - nh) / 2

	return p
}

// ScaledSize returns the size of the resized content inside the model input.
func (p Params) ScaledSize() (int, int) {
	if p.Policy == PolicyStretch {
		return p.DstWidth, p.DstHeight
	}
	nw := clampSize(int(math32.Floor(float32(p.SrcWidth)*p.Ratio+0.5)), p.DstWidth)
	nh := clampSize(int(math32.Floor(float32(p.SrcHeight)*p.Ratio+0.5)), p.DstHeight)
	return nw, nh
}

// Forward maps a point from region-local space into model-input space.
func (p Params) Forward(x, y float32) (float32, float32) {
	if p.Policy == PolicyStretch {
		return x * p.ScaleX, y * p.ScaleY
	}
	return x*p.Ratio + float32(p.PadX), y*p.Ratio + float32(p.PadY)
}

// Inverse maps a point from model-input space back into region-local space.
func (p Params) Inverse(x, y float32) (float32, float32) {
	if p.Policy == PolicyStretch {
		return x / p.ScaleX, y / p.ScaleY
	}
	return (x - float32(p.PadX)) / p.Ratio, (y - float32(p.PadY)) / p.Ratio
}

// InverseSize maps a width and height from model-input space back into region-local space.
func (p Params) InverseSize(w, h float32) (float32, float32) {
	if p.Policy == PolicyStretch {
		return w / p.ScaleX, h / p.ScaleY
	}
	return w / p.Ratio, h / p.Ratio
}

func clampSize(v, limit int) int {
	if v < 1 {
		return 1
	}
	if v > limit {
		return limit
	}
	return v
}
