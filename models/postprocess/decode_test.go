package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// outputTensor builds an attribute-major output from per-candidate rows
// [cx, cy, w, h, scores...].
func outputTensor(rows [][]float32, batch bool) *tensor.Dense {
	attrs, n := len(rows[0]), len(rows)
	data := make([]float32, attrs*n)
	for i, row := range rows {
		for a, v := range row {
			data[a*n+i] = v
		}
	}
	if batch {
		return tensor.New(tensor.WithShape(1, attrs, n), tensor.WithBacking(data))
	}
	return tensor.New(tensor.WithShape(attrs, n), tensor.WithBacking(data))
}

func TestDecode(t *testing.T) {
	out := outputTensor([][]float32{
		{64, 64, 32, 32, 0.9, 0.1},
		{10, 10, 5, 5, 0.29, 0.2},  // below prefilter
		{20, 20, 8, 8, 0.1, 0.35},  // class 1
		{30, 30, 8, 8, 0.6, 0.6},   // tie, lowest index wins
		{40, 40, 8, 8, 0.3, 0.0},   // exactly at threshold
	}, true)

	cs, err := NewDecoder(DefaultPrefilterThreshold, 2).Decode(out)
	require.NoError(t, err)
	require.Len(t, cs, 4)

	assert.Equal(t, Candidate{
		CX: 64, CY: 64, W: 32, H: 32,
		ClassID:     0,
		Score:       0.9,
		ClassScores: []float32{0.9, 0.1},
	}, cs[0])
	assert.Equal(t, 1, cs[1].ClassID)
	assert.Equal(t, []float32{0.1, 0.35}, cs[1].ClassScores)
	assert.Equal(t, 0, cs[2].ClassID)
	assert.InDelta(t, 0.6, cs[2].Score, 1e-6)
	assert.Equal(t, []int{0, 1, 0, 0}, cs.ClassIDs())
	assert.Len(t, cs.Scores(), 4)
}

// TestDecodePrefilter checks that nothing below the threshold is ever emitted.
func TestDecodePrefilter(t *testing.T) {
	rows := make([][]float32, 0, 100)
	for i := 0; i < 100; i++ {
		s := float32(i) / 100
		rows = append(rows, []float32{1, 1, 1, 1, s, s / 2, s / 3})
	}

	for _, threshold := range []float32{0, 0.3, 0.5, 0.99, 1.5} {
		cs, err := NewDecoder(threshold, 0).Decode(outputTensor(rows, false))
		require.NoError(t, err)
		for _, c := range cs {
			assert.GreaterOrEqual(t, c.Score, threshold)
		}
	}
}

func TestDecodeBadShape(t *testing.T) {
	tests := []struct {
		name string
		out  *tensor.Dense
		dec  *Decoder
	}{
		{"nil", nil, NewDecoder(0.3, 0)},
		{"too few attributes", tensor.New(tensor.WithShape(4, 3), tensor.WithBacking(make([]float32, 12))), NewDecoder(0.3, 0)},
		{"rank 1", tensor.New(tensor.WithShape(12), tensor.WithBacking(make([]float32, 12))), NewDecoder(0.3, 0)},
		{"batch of two", tensor.New(tensor.WithShape(2, 6, 2), tensor.WithBacking(make([]float32, 24))), NewDecoder(0.3, 0)},
		{"class mismatch", tensor.New(tensor.WithShape(6, 2), tensor.WithBacking(make([]float32, 12))), NewDecoder(0.3, 3)},
		{"float64", tensor.New(tensor.WithShape(6, 2), tensor.WithBacking(make([]float64, 12))), NewDecoder(0.3, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.dec.Decode(tt.out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadOutputShape))
		})
	}
}
