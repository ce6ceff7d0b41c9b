// Package sim provides the core discrete-event simulation engine for station-sim.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event, EventKind and the time-ordered EventList
//   - station.go: Station (FIFO queue + single server) and its busy/idle lifecycle
//   - engine.go: the three-phase loop (advance time, process due events, start service)
//     and the pause/resume/cancel/pacing controls
//
// # Architecture
//
// The sim package defines the engine and the extension points; implementations
// live in sub-packages:
//   - sim/distribution/: stochastic samplers (negexp, poisson, constant)
//   - sim/network/: station topology, routing decisions, results sinks
//   - sim/trace/: routing decision trace recording
//
// # Key Interfaces
//
//   - Model: wires stations and event handlers onto an Engine and reports at the end of a run
//   - Sampler: produces non-negative service or inter-arrival durations
//   - Observer: receives arrival/departure/progress/end notifications off the simulation goroutine
package sim
