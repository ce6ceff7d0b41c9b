package network

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/station-sim/sim"
	"github.com/inference-sim/station-sim/sim/distribution"
	"github.com/inference-sim/station-sim/sim/trace"
)

// Network is a sim.Model that routes entities through the stations of a Config.
// The topology (who feeds whom) is fixed at construction; means and branch
// probabilities come from the ConfigSource.
type Network struct {
	topology *Config
	source   ConfigSource
	sink     ResultsSink
	trace    *trace.SimulationTrace

	engine      *sim.Engine
	arrival     *sim.ArrivalProcess
	stations    map[string]*sim.Station
	router      *rand.Rand
	completions map[string]int
	routed      map[string]map[string]int
	probsUsed   map[string]float64
	meansUsed   map[string]float64
	results     *Results
}

// New validates the topology and the source's current values and returns a
// Network ready to be driven by an Engine. A nil source serves the topology's
// own values; a nil sink discards results; a nil trace records nothing.
func New(topology *Config, source ConfigSource, sink ResultsSink, tr *trace.SimulationTrace) (*Network, error) {
	if topology == nil {
		return nil, fmt.Errorf("%w: nil network config", sim.ErrInvalidConfiguration)
	}
	if err := topology.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		source = NewStore(topology)
	}
	n := &Network{
		topology: topology,
		source:   source,
		sink:     sink,
		trace:    tr,
	}
	if err := n.checkSource(); err != nil {
		return nil, err
	}
	return n, nil
}

// checkSource validates what the source currently serves, so a bad mean or
// probability fails before the run starts instead of mid-run.
func (n *Network) checkSource() error {
	points := []string{ArrivalPoint}
	for _, st := range n.topology.Stations {
		points = append(points, st.Name)
	}
	for _, p := range points {
		spec, err := n.source.Distribution(p)
		if err != nil {
			return err
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	for _, st := range n.topology.Stations {
		if !st.IsDecision() {
			continue
		}
		probs, err := n.branchProbabilities(st)
		if err != nil {
			return err
		}
		if err := ValidateProbabilities(st.Name, probs); err != nil {
			return err
		}
	}
	return nil
}

// NewEngine creates an engine for this network using the topology's seed,
// duration and delay.
func (n *Network) NewEngine(obs sim.Observer) (*sim.Engine, error) {
	return sim.NewEngine(sim.Config{
		Duration: n.topology.Duration,
		Delay:    time.Duration(n.topology.DelayMs) * time.Millisecond,
		Seed:     n.topology.Seed,
	}, n, obs)
}

// Init implements sim.Model.
func (n *Network) Init(e *sim.Engine) error {
	n.engine = e
	n.stations = make(map[string]*sim.Station, len(n.topology.Stations))
	n.completions = make(map[string]int, len(n.topology.Stations))
	n.routed = make(map[string]map[string]int, len(n.topology.Stations))
	n.probsUsed = make(map[string]float64)
	n.meansUsed = make(map[string]float64)
	n.results = nil
	n.router = e.RNG().ForSubsystem(sim.SubsystemRouter)

	// Record the probabilities in force at the start, so a run that ends
	// before a decision station completes anything still reports them.
	for _, cfg := range n.topology.Stations {
		if !cfg.IsDecision() {
			continue
		}
		if _, err := n.branchProbabilities(cfg); err != nil {
			return err
		}
	}

	for _, cfg := range n.topology.Stations {
		sampler, err := n.sampler(cfg.Name, e.RNG().ForSubsystem(sim.SubsystemStation(cfg.Name)))
		if err != nil {
			return err
		}
		st, err := e.AddStation(cfg.Name, sampler)
		if err != nil {
			return err
		}
		n.stations[cfg.Name] = st
		n.routed[cfg.Name] = make(map[string]int)
		e.Handle(st.CompletionKind(), n.departureHandler(cfg))
	}

	sampler, err := n.sampler(ArrivalPoint, e.RNG().ForSubsystem(sim.SubsystemArrival))
	if err != nil {
		return err
	}
	n.arrival, err = e.NewArrivalProcess(n.topology.Arrival.Station, sampler)
	if err != nil {
		return err
	}
	e.Handle(n.arrival.Kind(), n.handleArrival)

	// prime the pump
	n.arrival.GenerateNext()
	return nil
}

func (n *Network) sampler(point string, rng *rand.Rand) (sim.Sampler, error) {
	spec, err := n.source.Distribution(point)
	if err != nil {
		return nil, err
	}
	s, err := distribution.New(spec, rng)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", point, err)
	}
	n.meansUsed[point] = spec.Mean
	return s, nil
}

func (n *Network) handleArrival(ev sim.Event) error {
	e := n.engine.Population().Admit(ev.Time)
	n.stations[n.topology.Arrival.Station].Enqueue(e)
	n.arrival.GenerateNext()
	return nil
}

func (n *Network) departureHandler(cfg StationConfig) sim.Handler {
	return func(ev sim.Event) error {
		st := n.stations[cfg.Name]
		e, err := st.Dequeue()
		if err != nil {
			return fmt.Errorf("station %s: %w", cfg.Name, err)
		}
		n.completions[cfg.Name]++

		dest, err := n.next(cfg, e, ev.Time)
		if err != nil {
			return err
		}
		if dest == "" {
			n.routed[cfg.Name][ExitDestination]++
			n.engine.Population().Discharge(e, ev.Time)
			return nil
		}
		n.routed[cfg.Name][dest]++
		n.stations[dest].Enqueue(e)
		return nil
	}
}

// next returns the destination of an entity leaving the station, or "" when
// it leaves the system.
func (n *Network) next(cfg StationConfig, e *sim.Entity, now float64) (string, error) {
	if !cfg.IsDecision() {
		return cfg.Next, nil
	}
	probs, err := n.branchProbabilities(cfg)
	if err != nil {
		return "", err
	}
	r := n.router.Float64()
	idx, thresholds := Choose(r, probs)
	dest := cfg.Fallback
	if idx >= 0 {
		dest = cfg.Routes[idx].To
	}
	if n.trace.Enabled() {
		chosen := dest
		if chosen == "" {
			chosen = ExitDestination
		}
		n.trace.RecordRouting(trace.RoutingRecord{
			EntityID:   e.ID,
			Clock:      now,
			Station:    cfg.Name,
			Draw:       r,
			Thresholds: thresholds,
			Chosen:     chosen,
			Fallback:   idx < 0,
		})
	}
	return dest, nil
}

// branchProbabilities reads the current probabilities of cfg's branches from
// the source; they are never cached across decisions.
func (n *Network) branchProbabilities(cfg StationConfig) ([]float64, error) {
	probs := make([]float64, len(cfg.Routes))
	for i, r := range cfg.Routes {
		p, err := n.source.Probability(cfg.Name, r.To)
		if err != nil {
			return nil, err
		}
		probs[i] = p
		if n.probsUsed != nil {
			n.probsUsed[cfg.Name+"."+r.To] = p
		}
	}
	return probs, nil
}

// Finish implements sim.Model: it builds the Results record and hands it to the sink.
func (n *Network) Finish(stats sim.Statistics) {
	r := Results{
		RunID:          uuid.New(),
		RecordedAt:     time.Now(),
		Seed:           int64(n.engine.RNG().Key()),
		TotalArrived:   stats.Arrivals,
		Completed:      stats.Completed,
		AverageSojourn: stats.AverageSojourn,
		EndTime:        stats.EndTime,
		Cancelled:      stats.Cancelled,
		Probabilities:  make(map[string]float64, len(n.probsUsed)),
		MeanTimes:      make(map[string]float64, len(n.meansUsed)),
		Utilization:    make(map[string]float64, len(stats.Stations)),
		Routed:         n.Routed(),
	}
	for k, v := range n.probsUsed {
		r.Probabilities[k] = v
	}
	for _, cfg := range n.topology.Stations {
		if !cfg.IsDecision() || cfg.Fallback == "" {
			continue
		}
		rest := 1.0
		for _, route := range cfg.Routes {
			rest -= r.Probabilities[cfg.Name+"."+route.To]
		}
		r.Probabilities[cfg.Name+"."+cfg.Fallback] = max(rest, 0)
	}
	for k, v := range n.meansUsed {
		r.MeanTimes[k] = v
	}
	for _, st := range stats.Stations {
		r.Utilization[st.Name] = st.Utilization
	}
	n.results = &r

	if n.sink == nil {
		return
	}
	if err := n.sink.Save(r); err != nil {
		logrus.Errorf("saving results of run %s: %v", r.RunID, err)
	}
}

// Results returns the record built by the last Finish.
func (n *Network) Results() (Results, bool) {
	if n.results == nil {
		return Results{}, false
	}
	return *n.results, true
}

// Completions returns the number of services completed at a station.
func (n *Network) Completions(station string) int {
	return n.completions[station]
}

// Routed returns a copy of the per-station destination counts.
func (n *Network) Routed() map[string]map[string]int {
	out := make(map[string]map[string]int, len(n.routed))
	for st, dests := range n.routed {
		m := make(map[string]int, len(dests))
		for d, c := range dests {
			m[d] = c
		}
		out[st] = m
	}
	return out
}

// Trace returns the decision trace, possibly nil.
func (n *Network) Trace() *trace.SimulationTrace {
	return n.trace
}

// Stations returns the station names in configuration order.
func (n *Network) Stations() []string {
	names := make([]string, len(n.topology.Stations))
	for i, st := range n.topology.Stations {
		names[i] = st.Name
	}
	return names
}

// Destinations lists where entities leaving station can go, in declared
// order, with ExitDestination for leaving the system.
func (n *Network) Destinations(station string) []string {
	cfg, ok := n.topology.Station(station)
	if !ok {
		return nil
	}
	switch {
	case cfg.Next != "":
		return []string{cfg.Next}
	case !cfg.IsDecision():
		return []string{ExitDestination}
	}
	dests := make([]string, 0, len(cfg.Routes)+1)
	for _, r := range cfg.Routes {
		dests = append(dests, r.To)
	}
	if cfg.Fallback != "" {
		return append(dests, cfg.Fallback)
	}
	return append(dests, ExitDestination)
}
