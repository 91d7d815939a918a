package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Histories             int
	Particles             int
	TotalCollisions       int
	MeanCollisionsPerPath float64
	MeanEnergyRetained    float64 // mean EnergyOut/EnergyIn over surviving collisions
	FateDistribution      map[Fate]int
	CollisionsPerCell     map[int64]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		FateDistribution:  make(map[Fate]int),
		CollisionsPerCell: make(map[int64]int),
	}
	if st == nil {
		return summary
	}

	histories := make(map[uint64]bool)
	pathCollisions := 0
	for _, p := range st.Particles {
		histories[p.History] = true
		summary.FateDistribution[p.Fate]++
		pathCollisions += p.Collisions
	}
	summary.Histories = len(histories)
	summary.Particles = len(st.Particles)
	if summary.Particles > 0 {
		summary.MeanCollisionsPerPath = float64(pathCollisions) / float64(summary.Particles)
	}

	summary.TotalCollisions = len(st.Collisions)
	retained, survivors := 0.0, 0
	for _, c := range st.Collisions {
		summary.CollisionsPerCell[c.Cell]++
		if c.EnergyOut > 0 && c.EnergyIn > 0 {
			retained += c.EnergyOut / c.EnergyIn
			survivors++
		}
	}
	if survivors > 0 {
		summary.MeanEnergyRetained = retained / float64(survivors)
	}

	return summary
}
