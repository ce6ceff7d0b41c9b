package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestChoose_CumulativeThresholds(t *testing.T) {
	probs := []float64{0.45, 0.45}
	tests := []struct {
		r    float64
		want int
	}{
		{0, 0},
		{0.44, 0},
		{0.45, 1},
		{0.89, 1},
		{0.9, -1},
		{0.999, -1},
	}
	for _, tt := range tests {
		got, thresholds := Choose(tt.r, probs)
		assert.Equal(t, tt.want, got, "r=%v", tt.r)
		assert.InDeltaSlice(t, []float64{0.45, 0.9}, thresholds, 1e-12)
	}
}

func TestChoose_OverfullSumStarvesLaterBranches(t *testing.T) {
	idx, _ := Choose(0.95, []float64{0.7, 0.6})
	assert.Equal(t, 1, idx)
	// every draw < 1 lands in the first two branches; the third never wins
	for _, r := range []float64{0, 0.5, 0.99} {
		idx, _ := Choose(r, []float64{0.7, 0.6, 0.5})
		assert.NotEqual(t, 2, idx)
	}
}

func TestChoose_NoBranches(t *testing.T) {
	idx, thresholds := Choose(0.3, nil)
	assert.Equal(t, -1, idx)
	assert.Empty(t, thresholds)
}

func TestChoose_PicksFirstThresholdAboveDraw(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "n")
		probs := make([]float64, n)
		for i := range probs {
			probs[i] = rapid.Float64Range(0, 0.25).Draw(t, "p")
		}
		r := rapid.Float64Range(0, 0.9999).Draw(t, "r")

		idx, thresholds := Choose(r, probs)
		if idx == -1 {
			if r < thresholds[n-1] {
				t.Fatalf("fallback taken but r=%v < total %v", r, thresholds[n-1])
			}
			return
		}
		if r >= thresholds[idx] {
			t.Fatalf("r=%v not below chosen threshold %v", r, thresholds[idx])
		}
		if idx > 0 && r < thresholds[idx-1] {
			t.Fatalf("r=%v already below earlier threshold %v", r, thresholds[idx-1])
		}
	})
}
