package distribution

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/inference-sim/station-sim/sim"
)

func sampleMean(s sim.Sampler, n int) float64 {
	total := 0.0
	for i := 0; i < n; i++ {
		total += s.Sample()
	}
	return total / float64(n)
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name  string
		spec  Spec
		valid bool
	}{
		{"negexp", Spec{FamilyNegExp, 3}, true},
		{"exponential alias", Spec{FamilyExponential, 0.5}, true},
		{"poisson", Spec{FamilyPoisson, 40}, true},
		{"constant", Spec{FamilyConstant, 8}, true},
		{"unknown family", Spec{"gamma", 3}, false},
		{"empty family", Spec{"", 3}, false},
		{"zero mean", Spec{FamilyNegExp, 0}, false},
		{"negative mean", Spec{FamilyConstant, -1}, false},
		{"NaN mean", Spec{FamilyNegExp, math.NaN()}, false},
		{"infinite mean", Spec{FamilyPoisson, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
			_, err = New(tt.spec, rand.New(rand.NewSource(1)))
			assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
		})
	}
}

func TestNew_PicksFamily(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s, err := New(Spec{FamilyNegExp, 2}, rng)
	require.NoError(t, err)
	assert.IsType(t, &Exponential{}, s)

	s, err = New(Spec{FamilyPoisson, 2}, rng)
	require.NoError(t, err)
	assert.IsType(t, &Poisson{}, s)

	s, err = New(Spec{FamilyConstant, 2}, rng)
	require.NoError(t, err)
	assert.IsType(t, &Constant{}, s)
}

func TestExponential_MeanConverges(t *testing.T) {
	for _, mean := range []float64{3, 5, 10, 15} {
		s := NewExponential(mean, rand.New(rand.NewSource(42)))
		assert.InEpsilon(t, mean, sampleMean(s, 100_000), 0.02, "mean %v", mean)
		assert.Equal(t, mean, s.Mean())
	}
}

func TestExponential_AlwaysFiniteAndNonNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mean := rapid.Float64Range(0.001, 1000).Draw(t, "mean")
		seed := rapid.Int64().Draw(t, "seed")
		s := NewExponential(mean, rand.New(rand.NewSource(seed)))
		for i := 0; i < 100; i++ {
			v := s.Sample()
			if v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
				t.Fatalf("sample %d = %v", i, v)
			}
		}
	})
}

func TestPoisson_MeanConvergesOnBothPaths(t *testing.T) {
	for _, mean := range []float64{2, 12, 30, 75} {
		s := NewPoisson(mean, rand.New(rand.NewSource(7)))
		assert.InEpsilon(t, mean, sampleMean(s, 50_000), 0.02, "mean %v", mean)
	}
}

func TestPoisson_CountsAreNonNegativeIntegers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mean := rapid.Float64Range(0.1, 200).Draw(t, "mean")
		s := NewPoisson(mean, rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed"))))
		for i := 0; i < 50; i++ {
			v := s.Sample()
			if v < 0 || v != math.Trunc(v) {
				t.Fatalf("sample %d = %v", i, v)
			}
		}
	})
}

func TestConstant(t *testing.T) {
	s := NewConstant(8)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 8.0, s.Sample())
	}
	assert.Equal(t, 8.0, s.Mean())
}

func TestSamplers_ReproducibleForSeed(t *testing.T) {
	a := NewExponential(5, rand.New(rand.NewSource(99)))
	b := NewExponential(5, rand.New(rand.NewSource(99)))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}
