package images

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRegion(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		want           Region
		wantErr        bool
	}{
		{name: "ordered", x1: 10, y1: 10, x2: 110, y2: 110, want: Region{10, 10, 110, 110}},
		{name: "swapped corners", x1: 110, y1: 110, x2: 10, y2: 10, want: Region{10, 10, 110, 110}},
		{name: "mixed order", x1: 110, y1: 10, x2: 10, y2: 110, want: Region{10, 10, 110, 110}},
		{name: "clamped to bounds", x1: -20, y1: -5, x2: 500, y2: 300, want: Region{0, 0, 200, 200}},
		{name: "zero width", x1: 50, y1: 50, x2: 50, y2: 80, wantErr: true},
		{name: "zero height", x1: 10, y1: 70, x2: 60, y2: 70, wantErr: true},
		{name: "entirely outside", x1: 300, y1: 300, x2: 400, y2: 400, wantErr: true},
		{name: "entirely negative", x1: -30, y1: 0, x2: -10, y2: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectRegion(tt.x1, tt.y1, tt.x2, tt.y2, 200, 200)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrEmptyRegion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.X2-tt.want.X1, got.Width())
		})
	}
}

// TestSelectRegionClampProperty checks the canonical invariant holds for arbitrary corners.
func TestSelectRegionClampProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 320, 240

	for i := 0; i < 2000; i++ {
		x1, x2 := rng.Intn(800)-200, rng.Intn(800)-200
		y1, y2 := rng.Intn(600)-150, rng.Intn(600)-150

		r, err := SelectRegion(x1, y1, x2, y2, w, h)
		if err != nil {
			assert.True(t, errors.Is(err, ErrEmptyRegion))
			continue
		}
		assert.True(t, 0 <= r.X1 && r.X1 < r.X2 && r.X2 <= w, "x invariant: %+v", r)
		assert.True(t, 0 <= r.Y1 && r.Y1 < r.Y2 && r.Y2 <= h, "y invariant: %+v", r)
	}
}
