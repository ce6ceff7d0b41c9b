package network

// Choose picks a branch for the uniform draw r in [0,1) using cumulative
// thresholds in declared order: branch 0 if r < p0, branch 1 if r < p0+p1,
// and so on. It returns -1 when r falls past every threshold, meaning the
// fallback branch is taken. The thresholds are returned for tracing.
func Choose(r float64, probs []float64) (int, []float64) {
	thresholds := make([]float64, len(probs))
	cumulative := 0.0
	chosen := -1
	for i, p := range probs {
		cumulative += p
		thresholds[i] = cumulative
		if chosen < 0 && r < cumulative {
			chosen = i
		}
	}
	return chosen, thresholds
}
