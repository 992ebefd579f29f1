package optimizer

import "time"

// GenerationStats summarizes one completed generation.
type GenerationStats struct {
	Generation     int
	BestConstraint float64
	BestFitness    []float64
	FrontSize      int
	Retries        int
	Duration       time.Duration
}

// Observer receives per-generation statistics from Run. Calls happen on the
// goroutine running the optimizer.
type Observer interface {
	ObserveGeneration(stats GenerationStats)
	ObserveFailure(generation int, err error)
}

type NopObserver struct{}

func (NopObserver) ObserveGeneration(GenerationStats) {}

func (NopObserver) ObserveFailure(int, error) {}
