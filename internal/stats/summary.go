package stats

import "math"

// Summary condenses a generation history.
type Summary struct {
	Generations           int       `json:"generations"`
	InitialBestConstraint float64   `json:"initial_best_constraint"`
	FinalBestConstraint   float64   `json:"final_best_constraint"`
	FeasibleAt            *int      `json:"feasible_at,omitempty"`
	InitialBestFitness    []float64 `json:"initial_best_fitness,omitempty"`
	FinalBestFitness      []float64 `json:"final_best_fitness,omitempty"`
	Improvement           []float64 `json:"improvement,omitempty"`
	TotalRetries          int       `json:"total_retries"`
	AvgDurationMS         float64   `json:"avg_duration_ms"`
	StdDurationMS         float64   `json:"std_duration_ms"`
	MinDurationMS         float64   `json:"min_duration_ms"`
	MaxDurationMS         float64   `json:"max_duration_ms"`
}

// FeasibleTolerance is the largest distance to the volume target that still
// counts as a hit.
const FeasibleTolerance = 1e-6

// Summarize reports first and last best values, per-objective improvement and
// step timing. FeasibleAt is the first generation whose best individual is
// within FeasibleTolerance of the volume target.
func Summarize(history []HistoryEntry) Summary {
	summary := Summary{Generations: len(history)}
	if len(history) == 0 {
		return summary
	}

	first, last := history[0], history[len(history)-1]
	summary.InitialBestConstraint = first.BestConstraint
	summary.FinalBestConstraint = last.BestConstraint
	summary.InitialBestFitness = append([]float64(nil), first.BestFitness...)
	summary.FinalBestFitness = append([]float64(nil), last.BestFitness...)
	if len(first.BestFitness) == len(last.BestFitness) {
		summary.Improvement = make([]float64, len(last.BestFitness))
		for i := range last.BestFitness {
			summary.Improvement[i] = last.BestFitness[i] - first.BestFitness[i]
		}
	}

	durations := make([]float64, 0, len(history))
	for _, entry := range history {
		summary.TotalRetries += entry.Retries
		durations = append(durations, entry.DurationMS)
		if summary.FeasibleAt == nil && entry.BestConstraint >= -FeasibleTolerance {
			gen := entry.Generation
			summary.FeasibleAt = &gen
		}
	}
	summary.AvgDurationMS, summary.StdDurationMS = meanStd(durations)
	summary.MinDurationMS, summary.MaxDurationMS = durations[0], durations[0]
	for _, d := range durations[1:] {
		summary.MinDurationMS = math.Min(summary.MinDurationMS, d)
		summary.MaxDurationMS = math.Max(summary.MaxDurationMS, d)
	}
	return summary
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
