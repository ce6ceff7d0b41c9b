// Package trace provides decision-trace recording for routing analysis.
// This package has no dependencies on sim/ or sim/network/; it stores pure data types.
package trace

// RoutingRecord captures a single routing decision made when an entity
// finished service at a decision station.
type RoutingRecord struct {
	EntityID   uint64
	Clock      float64
	Station    string    // decision point
	Draw       float64   // uniform draw r in [0,1)
	Thresholds []float64 // cumulative thresholds compared against Draw, in branch order
	Chosen     string    // destination station
	Fallback   bool      // true if no threshold matched and the fallback branch was taken
}
