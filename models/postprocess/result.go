// Package postprocess - Postprocessing utilities for models.
package postprocess

import "github.com/nvr-ai/roi-detect/images"

// Candidate is a raw detection decoded from the model output, in model-input space.
type Candidate struct {
	// CX, CY is the box center.
	CX, CY float32
	// W, H is the box size.
	W, H float32
	// ClassID is the argmax class index.
	ClassID int
	// Score is the maximal class score.
	Score float32
	// ClassScores holds the score of every class in output order.
	ClassScores []float32
}

// Candidates is an ordered list of raw candidates.
type Candidates []Candidate

// Scores returns the scores parallel to the candidate list.
func (cs Candidates) Scores() []float32 {
	out := make([]float32, len(cs))
	for i, c := range cs {
		out[i] = c.Score
	}
	return out
}

// ClassIDs returns the class ids parallel to the candidate list.
func (cs Candidates) ClassIDs() []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.ClassID
	}
	return out
}

// Detection represents a single detection result.
type Detection struct {
	// The bounding box of the result, clamped to the region.
	Box images.Box `json:"box"`
	// The confidence score of the result.
	Score float32 `json:"score"`
	// The predicted class index of the result.
	ClassID int `json:"class_id"`
}
