// Package distribution provides the stochastic samplers used for
// inter-arrival and service times.
package distribution

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/inference-sim/station-sim/sim"
)

// Family names a distribution family as it appears in configuration.
type Family string

const (
	FamilyNegExp      Family = "negexp"
	FamilyExponential Family = "exponential" // alias of negexp
	FamilyPoisson     Family = "poisson"
	FamilyConstant    Family = "constant"
)

// ValidFamilies is the set of recognized family names.
var ValidFamilies = map[Family]bool{
	FamilyNegExp:      true,
	FamilyExponential: true,
	FamilyPoisson:     true,
	FamilyConstant:    true,
}

// Spec selects a family and its mean.
type Spec struct {
	Family Family  `yaml:"distribution"`
	Mean   float64 `yaml:"mean"`
}

// Validate rejects unknown families and non-positive or non-finite means.
func (s Spec) Validate() error {
	if !ValidFamilies[s.Family] {
		return fmt.Errorf("%w: unknown distribution family %q", sim.ErrInvalidConfiguration, s.Family)
	}
	if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) || s.Mean <= 0 {
		return fmt.Errorf("%w: %s mean must be a positive number, got %v", sim.ErrInvalidConfiguration, s.Family, s.Mean)
	}
	return nil
}

// New creates a sampler for spec drawing from rng.
// Each sampler must get its own rng; samplers are not shared between stations.
func New(spec Spec, rng *rand.Rand) (sim.Sampler, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Family {
	case FamilyNegExp, FamilyExponential:
		return NewExponential(spec.Mean, rng), nil
	case FamilyPoisson:
		return NewPoisson(spec.Mean, rng), nil
	default:
		return NewConstant(spec.Mean), nil
	}
}

// Exponential draws memoryless durations with the given mean.
type Exponential struct {
	mean float64
	rng  *rand.Rand
}

// NewExponential creates an exponential sampler.
func NewExponential(mean float64, rng *rand.Rand) *Exponential {
	return &Exponential{mean: mean, rng: rng}
}

// Sample returns -mean * ln(U) with U uniform on (0, 1].
// U never equals 0, so the sample is always finite.
func (s *Exponential) Sample() float64 {
	u := 1 - s.rng.Float64()
	return -s.mean * math.Log(u)
}

// Mean returns the configured mean.
func (s *Exponential) Mean() float64 { return s.mean }

// Poisson draws event counts with the given mean and returns them as float64
// so they fit the Sampler interface.
type Poisson struct {
	mean float64
	rng  *rand.Rand
}

// NewPoisson creates a Poisson sampler.
func NewPoisson(mean float64, rng *rand.Rand) *Poisson {
	return &Poisson{mean: mean, rng: rng}
}

// Sample returns Count() as a float64.
func (s *Poisson) Sample() float64 {
	return float64(s.Count())
}

// Mean returns the configured mean.
func (s *Poisson) Mean() float64 { return s.mean }

// Count draws one Poisson count.
// Small means use Knuth's product method; large means use Hörmann's PTRS
// transformed rejection, which stays O(1) per sample.
func (s *Poisson) Count() int64 {
	if s.mean < 30 {
		return s.knuth()
	}
	return s.ptrs()
}

func (s *Poisson) knuth() int64 {
	limit := math.Exp(-s.mean)
	var k int64
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func (s *Poisson) ptrs() int64 {
	lam := s.mean
	slam := math.Sqrt(lam)
	logLam := math.Log(lam)
	b := 0.931 + 2.53*slam
	a := -0.059 + 0.02483*b
	invAlpha := 1.1239 + 1.1328/(b-3.4)
	vr := 0.9277 - 3.6224/(b-2)

	for {
		u := s.rng.Float64() - 0.5
		v := s.rng.Float64()
		us := 0.5 - math.Abs(u)
		k := math.Floor((2*a/us+b)*u + lam + 0.43)
		if us >= 0.07 && v <= vr {
			return int64(k)
		}
		if k < 0 || (us < 0.013 && v > us) {
			continue
		}
		lg, _ := math.Lgamma(k + 1)
		if math.Log(v)+math.Log(invAlpha)-math.Log(a/(us*us)+b) <= -lam+k*logLam-lg {
			return int64(k)
		}
	}
}

// Constant always returns the same duration.
type Constant struct {
	value float64
}

// NewConstant creates a sampler that always returns value.
func NewConstant(value float64) *Constant {
	return &Constant{value: value}
}

// Sample returns the constant value.
func (s *Constant) Sample() float64 { return s.value }

// Mean returns the constant value.
func (s *Constant) Mean() float64 { return s.value }
