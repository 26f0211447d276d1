package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultPrefilterThreshold is the minimum class score a candidate needs to survive decoding.
const DefaultPrefilterThreshold = 0.3

// ErrBadOutputShape is returned when the model output cannot be decoded.
var ErrBadOutputShape = errors.New("unexpected model output shape")

// Decoder interprets an attribute-major detection output.
//
// The expected layout is (attributes, candidates) with attributes
// [cx, cy, w, h, score0, score1, ...]. A leading batch dimension of 1 is accepted.
type Decoder struct {
	// Threshold drops candidates whose maximal class score is below it.
	Threshold float32
	// NumClasses, when positive, must match the number of score rows in the output.
	NumClasses int
}

// NewDecoder creates a decoder.
//
// Arguments:
//   - threshold: The pre-filter threshold.
//   - numClasses: The expected class count, or 0 to accept any.
//
// Returns:
//   - *Decoder: The decoder.
func NewDecoder(threshold float32, numClasses int) *Decoder {
	return &Decoder{Threshold: threshold, NumClasses: numClasses}
}

// Decode converts the raw output tensor into candidates.
//
// For each candidate the class with the maximal score is selected; the lowest class index wins
// ties. Candidates below the threshold, or with non-finite values, are dropped. Scores are
// used as emitted by the engine.
//
// Arguments:
//   - out: The output tensor of shape (attrs, N) or (1, attrs, N).
//
// Returns:
//   - Candidates: The surviving candidates in tensor order.
//   - error: ErrBadOutputShape (wrapped) when the tensor is not decodable.
func (d *Decoder) Decode(out *tensor.Dense) (Candidates, error) {
	if out == nil {
		return nil, errors.Wrap(ErrBadOutputShape, "nil output")
	}

	shape := out.Shape()
	var attrs, n int
	switch {
	case len(shape) == 2:
		attrs, n = shape[0], shape[1]
	case len(shape) == 3 && shape[0] == 1:
		attrs, n = shape[1], shape[2]
	default:
		return nil, errors.Wrapf(ErrBadOutputShape, "shape %v", shape)
	}

	if attrs < 5 {
		return nil, errors.Wrapf(ErrBadOutputShape, "%d attributes, need at least 5", attrs)
	}
	numClasses := attrs - 4
	if d.NumClasses > 0 && numClasses != d.NumClasses {
		return nil, errors.Wrapf(ErrBadOutputShape, "%d class scores, model configured for %d", numClasses, d.NumClasses)
	}

	data, ok := out.Data().([]float32)
	if !ok {
		return nil, errors.Wrapf(ErrBadOutputShape, "dtype %v, need float32", out.Dtype())
	}
	if len(data) < attrs*n {
		return nil, errors.Wrapf(ErrBadOutputShape, "%d values for shape %v", len(data), shape)
	}

	// Row r of the output holds attribute r for every candidate.
	at := func(r, i int) float32 { return data[r*n+i] }

	candidates := make(Candidates, 0, n/8)
	for i := 0; i < n; i++ {
		best := 0
		bestScore := at(4, i)
		for c := 1; c < numClasses; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}

		if !(bestScore >= d.Threshold) {
			continue
		}

		c := Candidate{CX: at(0, i), CY: at(1, i), W: at(2, i), H: at(3, i), ClassID: best, Score: bestScore}
		if !finite(c.CX, c.CY, c.W, c.H) {
			continue
		}
		c.ClassScores = make([]float32, numClasses)
		for k := range c.ClassScores {
			c.ClassScores[k] = at(4+k, i)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
