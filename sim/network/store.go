package network

import (
	"fmt"
	"sync"

	"github.com/inference-sim/station-sim/sim"
	"github.com/inference-sim/station-sim/sim/distribution"
)

// ConfigSource is the configuration the network reads while building and
// running. Probabilities are read on every decision, so a source that changes
// between runs takes effect on the next decision it serves.
type ConfigSource interface {
	// Distribution returns the family and mean for a station, or for ArrivalPoint.
	Distribution(point string) (distribution.Spec, error)
	// Probability returns the probability of taking branch at decision.
	Probability(decision, branch string) (float64, error)
}

// Store is an in-memory ConfigSource backed by a Config. It is safe for
// concurrent use so a UI goroutine can edit means and probabilities while no
// run is in progress.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore copies cfg into a new Store.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cloneConfig(cfg)}
}

// Distribution implements ConfigSource.
func (s *Store) Distribution(point string) (distribution.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if point == ArrivalPoint {
		return s.cfg.Arrival.Spec, nil
	}
	st, ok := s.cfg.Station(point)
	if !ok {
		return distribution.Spec{}, fmt.Errorf("%w: no distribution for %q", sim.ErrInvalidConfiguration, point)
	}
	return st.Spec, nil
}

// Probability implements ConfigSource.
func (s *Store) Probability(decision, branch string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.cfg.Station(decision)
	if !ok {
		return 0, fmt.Errorf("%w: unknown decision point %q", sim.ErrInvalidConfiguration, decision)
	}
	for _, r := range st.Routes {
		if r.To == branch {
			return r.Probability, nil
		}
	}
	return 0, fmt.Errorf("%w: decision %s has no branch %q", sim.ErrInvalidConfiguration, decision, branch)
}

// SetProbability changes the probability of one branch.
func (s *Store) SetProbability(decision, branch string, p float64) error {
	if err := ValidateProbabilities(decision, []float64{p}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cfg.Stations {
		st := &s.cfg.Stations[i]
		if st.Name != decision {
			continue
		}
		for j := range st.Routes {
			if st.Routes[j].To == branch {
				st.Routes[j].Probability = p
				return nil
			}
		}
	}
	return fmt.Errorf("%w: decision %s has no branch %q", sim.ErrInvalidConfiguration, decision, branch)
}

// SetDistribution replaces the family and mean of a station or of ArrivalPoint.
func (s *Store) SetDistribution(point string, spec distribution.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%s: %w", point, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if point == ArrivalPoint {
		s.cfg.Arrival.Spec = spec
		return nil
	}
	for i := range s.cfg.Stations {
		if s.cfg.Stations[i].Name == point {
			s.cfg.Stations[i].Spec = spec
			return nil
		}
	}
	return fmt.Errorf("%w: unknown station %q", sim.ErrInvalidConfiguration, point)
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := cloneConfig(&s.cfg)
	return &c
}

func cloneConfig(cfg *Config) Config {
	c := *cfg
	c.Stations = make([]StationConfig, len(cfg.Stations))
	for i, st := range cfg.Stations {
		st.Routes = append([]RouteConfig(nil), st.Routes...)
		c.Stations[i] = st
	}
	return c
}
