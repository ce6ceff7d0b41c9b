// Tracks end-of-run statistics: arrivals, completions, sojourn times and
// per-station utilization.

package sim

import (
	"fmt"
	"io"
	"os"
)

// StationStats summarizes one station over a run.
type StationStats struct {
	Name        string
	Served      int     // completed services
	Waiting     int     // entities still at the station when the run ended
	BusyTime    float64 // simulated time the server was occupied
	Utilization float64 // BusyTime / EndTime, 0 when EndTime is 0
}

// Statistics aggregates a finished (or cancelled) run for final reporting.
type Statistics struct {
	EndTime         float64 // simulated time when the loop stopped
	Duration        float64 // configured time bound
	Arrivals        uint64  // entities created
	Completed       uint64  // entities that left the system
	TotalSojourn    float64 // sum of departure - arrival over completed entities
	AverageSojourn  float64 // TotalSojourn / Completed, 0 when nothing completed
	EventsProcessed uint64
	Cancelled       bool
	Stations        []StationStats // in registration order
}

// Station returns the stats of the named station.
func (s Statistics) Station(name string) (StationStats, bool) {
	for _, st := range s.Stations {
		if st.Name == name {
			return st, true
		}
	}
	return StationStats{}, false
}

// Print writes the report to stdout.
func (s Statistics) Print() {
	s.Fprint(os.Stdout)
}

// Fprint writes a human-readable report of the run.
func (s Statistics) Fprint(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Statistics ===")
	fmt.Fprintf(w, "Simulation ended at time : %.2f\n", s.EndTime)
	if s.Cancelled {
		fmt.Fprintf(w, "Cancelled before         : %.2f\n", s.Duration)
	}
	fmt.Fprintf(w, "Total arrivals           : %d\n", s.Arrivals)
	fmt.Fprintf(w, "Total completed          : %d\n", s.Completed)
	fmt.Fprintf(w, "Average sojourn time     : %.2f\n", s.AverageSojourn)
	fmt.Fprintf(w, "Events processed         : %d\n", s.EventsProcessed)
	for _, st := range s.Stations {
		fmt.Fprintf(w, "  %-12s served=%-6d waiting=%-4d utilization=%.3f\n",
			st.Name, st.Served, st.Waiting, st.Utilization)
	}
}
