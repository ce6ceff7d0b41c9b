package trace

import "sort"

// DecisionSummary aggregates the decisions taken at one station.
type DecisionSummary struct {
	Station       string
	Decisions     int
	FallbackCount int
	Chosen        map[string]int // destination station → count
}

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions int
	FallbackCount  int
	Stations       []DecisionSummary // sorted by station name
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}

	byStation := make(map[string]*DecisionSummary)
	for _, r := range st.Routings {
		ds, ok := byStation[r.Station]
		if !ok {
			ds = &DecisionSummary{Station: r.Station, Chosen: make(map[string]int)}
			byStation[r.Station] = ds
		}
		ds.Decisions++
		ds.Chosen[r.Chosen]++
		summary.TotalDecisions++
		if r.Fallback {
			ds.FallbackCount++
			summary.FallbackCount++
		}
	}

	for _, ds := range byStation {
		summary.Stations = append(summary.Stations, *ds)
	}
	sort.Slice(summary.Stations, func(i, j int) bool {
		return summary.Stations[i].Station < summary.Stations[j].Station
	})
	return summary
}
