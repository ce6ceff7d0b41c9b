package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 {
		t.Errorf("expected 0 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.FallbackCount != 0 {
		t.Errorf("expected 0 fallbacks, got %d", summary.FallbackCount)
	}
	if len(summary.Stations) != 0 {
		t.Error("expected no station summaries")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil || summary.TotalDecisions != 0 {
		t.Fatalf("expected zero-value summary for nil trace, got %+v", summary)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN decisions at two stations
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordRouting(RoutingRecord{EntityID: 1, Station: "doctor", Chosen: "lab"})
	st.RecordRouting(RoutingRecord{EntityID: 2, Station: "doctor", Chosen: "xray"})
	st.RecordRouting(RoutingRecord{EntityID: 3, Station: "doctor", Chosen: "treatment", Fallback: true})
	st.RecordRouting(RoutingRecord{EntityID: 4, Station: "doctor", Chosen: "lab"})
	st.RecordRouting(RoutingRecord{EntityID: 1, Station: "lab", Chosen: "treatment", Fallback: true})

	// WHEN summarized
	summary := Summarize(st)

	// THEN totals and per-station counts match
	if summary.TotalDecisions != 5 {
		t.Errorf("expected 5 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.FallbackCount != 2 {
		t.Errorf("expected 2 fallbacks, got %d", summary.FallbackCount)
	}
	if len(summary.Stations) != 2 {
		t.Fatalf("expected 2 station summaries, got %d", len(summary.Stations))
	}
	doctor := summary.Stations[0]
	if doctor.Station != "doctor" {
		t.Fatalf("expected stations sorted by name, first is %q", doctor.Station)
	}
	if doctor.Decisions != 4 || doctor.Chosen["lab"] != 2 || doctor.Chosen["xray"] != 1 || doctor.Chosen["treatment"] != 1 {
		t.Errorf("unexpected doctor summary: %+v", doctor)
	}
	if doctor.FallbackCount != 1 {
		t.Errorf("expected 1 doctor fallback, got %d", doctor.FallbackCount)
	}
}

func TestSimulationTrace_Enabled(t *testing.T) {
	var nilTrace *SimulationTrace
	if nilTrace.Enabled() {
		t.Error("nil trace must not be enabled")
	}
	if NewSimulationTrace(TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("level none must not be enabled")
	}
	if !NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("level decisions must be enabled")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, lvl := range []string{"", "none", "decisions"} {
		if !IsValidTraceLevel(lvl) {
			t.Errorf("expected %q to be valid", lvl)
		}
	}
	if IsValidTraceLevel("verbose") {
		t.Error("expected \"verbose\" to be invalid")
	}
}
