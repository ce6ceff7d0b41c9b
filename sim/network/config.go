// Package network wires stations into a routed service network and drives
// it as a sim.Model: arrivals enter at one station, completions either move
// the entity to a fixed successor, to a probabilistically chosen branch, or
// out of the system.
package network

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/station-sim/sim"
	"github.com/inference-sim/station-sim/sim/distribution"
	"github.com/inference-sim/station-sim/sim/trace"
)

// ArrivalPoint is the configuration key of the arrival process.
const ArrivalPoint = "arrival"

// Config is the top-level network configuration, loadable from YAML.
type Config struct {
	Seed     int64           `yaml:"seed"`
	Duration float64         `yaml:"duration"`
	DelayMs  int64           `yaml:"delay_ms,omitempty"`
	Trace    string          `yaml:"trace,omitempty"`
	Arrival  ArrivalConfig   `yaml:"arrival"`
	Stations []StationConfig `yaml:"stations"`
}

// ArrivalConfig defines the arrival process and the station it feeds.
type ArrivalConfig struct {
	Station           string `yaml:"station"`
	distribution.Spec `yaml:",inline"`
}

// StationConfig defines one station and where its entities go next.
// A station has either Next, or Routes plus Fallback, or neither (exit).
type StationConfig struct {
	Name              string `yaml:"name"`
	distribution.Spec `yaml:",inline"`
	Next              string        `yaml:"next,omitempty"`
	Routes            []RouteConfig `yaml:"routes,omitempty"`
	Fallback          string        `yaml:"fallback,omitempty"` // empty: leave the system
}

// RouteConfig is one outgoing branch of a decision station.
type RouteConfig struct {
	To          string  `yaml:"to"`
	Probability float64 `yaml:"probability"`
}

// IsDecision reports whether the station routes probabilistically.
func (s StationConfig) IsDecision() bool { return len(s.Routes) > 0 }

// LoadConfig reads and parses a YAML network configuration file.
// Unknown fields are rejected so a misspelled key fails loudly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing network config: %w", err)
	}
	return &cfg, nil
}

// HealthCentre returns the default health-centre network: patients check in,
// see a doctor, go to the lab (45%), x-ray (45%) or straight to treatment,
// and leave after treatment.
func HealthCentre() *Config {
	return &Config{
		Seed:     42,
		Duration: 1000,
		Arrival: ArrivalConfig{
			Station: "check-in",
			Spec:    distribution.Spec{Family: distribution.FamilyNegExp, Mean: 15},
		},
		Stations: []StationConfig{
			{Name: "check-in", Spec: negexp(3), Next: "doctor"},
			{
				Name: "doctor",
				Spec: negexp(5),
				Routes: []RouteConfig{
					{To: "lab", Probability: 0.45},
					{To: "xray", Probability: 0.45},
				},
				Fallback: "treatment",
			},
			{Name: "lab", Spec: negexp(10), Next: "treatment"},
			{Name: "xray", Spec: negexp(8), Next: "treatment"},
			{Name: "treatment", Spec: negexp(12)},
		},
	}
}

func negexp(mean float64) distribution.Spec {
	return distribution.Spec{Family: distribution.FamilyNegExp, Mean: mean}
}

// Station returns the named station config.
func (c *Config) Station(name string) (StationConfig, bool) {
	for _, s := range c.Stations {
		if s.Name == name {
			return s, true
		}
	}
	return StationConfig{}, false
}

// Validate checks topology, distributions and branch probabilities.
// A probability sum other than 1 is accepted: the fallback branch absorbs any
// deficit, and a sum above 1 leaves later branches partly unreachable. Both
// are logged, not rejected.
func (c *Config) Validate() error {
	if math.IsNaN(c.Duration) || c.Duration < 0 {
		return fmt.Errorf("%w: duration must be >= 0, got %v", sim.ErrInvalidConfiguration, c.Duration)
	}
	if c.DelayMs < 0 {
		return fmt.Errorf("%w: delay_ms must be >= 0, got %d", sim.ErrInvalidConfiguration, c.DelayMs)
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		return fmt.Errorf("%w: unknown trace level %q", sim.ErrInvalidConfiguration, c.Trace)
	}
	if len(c.Stations) == 0 {
		return fmt.Errorf("%w: no stations defined", sim.ErrInvalidConfiguration)
	}

	names := make(map[string]bool, len(c.Stations))
	for _, s := range c.Stations {
		if s.Name == "" {
			return fmt.Errorf("%w: station with empty name", sim.ErrInvalidConfiguration)
		}
		if s.Name == ArrivalPoint {
			return fmt.Errorf("%w: %q is reserved for the arrival process", sim.ErrInvalidConfiguration, ArrivalPoint)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate station %q", sim.ErrInvalidConfiguration, s.Name)
		}
		names[s.Name] = true
	}

	if err := c.Arrival.Spec.Validate(); err != nil {
		return fmt.Errorf("arrival: %w", err)
	}
	if !names[c.Arrival.Station] {
		return fmt.Errorf("%w: arrival feeds unknown station %q", sim.ErrInvalidConfiguration, c.Arrival.Station)
	}

	for _, s := range c.Stations {
		if err := s.Spec.Validate(); err != nil {
			return fmt.Errorf("station %s: %w", s.Name, err)
		}
		if s.Next != "" && !names[s.Next] {
			return fmt.Errorf("%w: station %s: next %q is not a station", sim.ErrInvalidConfiguration, s.Name, s.Next)
		}
		if s.Next != "" && s.IsDecision() {
			return fmt.Errorf("%w: station %s has both next and routes", sim.ErrInvalidConfiguration, s.Name)
		}
		if s.Fallback != "" && !s.IsDecision() {
			return fmt.Errorf("%w: station %s has a fallback but no routes", sim.ErrInvalidConfiguration, s.Name)
		}
		if s.Fallback != "" && !names[s.Fallback] {
			return fmt.Errorf("%w: station %s: fallback %q is not a station", sim.ErrInvalidConfiguration, s.Name, s.Fallback)
		}
		probs := make([]float64, 0, len(s.Routes))
		seen := make(map[string]bool, len(s.Routes))
		for _, r := range s.Routes {
			if !names[r.To] {
				return fmt.Errorf("%w: station %s routes to unknown station %q", sim.ErrInvalidConfiguration, s.Name, r.To)
			}
			if seen[r.To] {
				return fmt.Errorf("%w: station %s routes to %q twice", sim.ErrInvalidConfiguration, s.Name, r.To)
			}
			seen[r.To] = true
			probs = append(probs, r.Probability)
		}
		if s.IsDecision() {
			if err := ValidateProbabilities(s.Name, probs); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateProbabilities rejects NaN or out-of-range branch probabilities and
// warns when the set does not sum to 1.
func ValidateProbabilities(decision string, probs []float64) error {
	sum := 0.0
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: decision %s: branch %d probability %v outside [0,1]", sim.ErrInvalidConfiguration, decision, i, p)
		}
		sum += p
	}
	const eps = 1e-9
	switch {
	case sum > 1+eps:
		logrus.Warnf("decision %s: branch probabilities sum to %.4f > 1; later branches are partly unreachable", decision, sum)
	case sum < 1-eps:
		logrus.Debugf("decision %s: fallback branch takes the remaining %.4f probability", decision, 1-sum)
	}
	return nil
}
