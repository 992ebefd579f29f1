package genetic

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TournamentSelector draws NumMatings matings. Each tournament samples
// TournamentSize distinct candidates from the pool, orders them best-first and
// draws NumParents of them without replacement with weight (1-P)^k for the
// k-th best. With RemoveSelected the chosen individuals leave the pool until
// it is too small for another mating, at which point it is refilled.
type TournamentSelector[G Genotype[G], A Advantage[A]] struct {
	NumMatings     int
	NumParents     int
	TournamentSize int
	P              float64
	RemoveSelected bool
}

func (s TournamentSelector[G, A]) validate(population int) error {
	switch {
	case s.NumMatings < 0:
		return fmt.Errorf("%w: num matings must be >= 0", ErrInvalidOperator)
	case s.NumParents < 1:
		return fmt.Errorf("%w: num parents must be >= 1", ErrInvalidOperator)
	case s.TournamentSize < 1:
		return fmt.Errorf("%w: tournament size must be >= 1", ErrInvalidOperator)
	case math.IsNaN(s.P) || s.P < 0 || s.P > 1:
		return fmt.Errorf("%w: tournament p must be in [0,1], got %v", ErrInvalidOperator, s.P)
	case population < s.NumParents:
		return fmt.Errorf("%w: population %d smaller than num parents %d", ErrInvalidOperator, population, s.NumParents)
	}
	return nil
}

func (s TournamentSelector[G, A]) Select(rng *rand.Rand, ranked []Ranked[G, A]) ([][]G, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := s.validate(len(ranked)); err != nil {
		return nil, err
	}

	pool := fullPool(len(ranked))
	matings := make([][]G, 0, s.NumMatings)
	for m := 0; m < s.NumMatings; m++ {
		if len(pool) < s.NumParents {
			pool = fullPool(len(ranked))
		}

		size := s.TournamentSize
		if size > len(pool) {
			size = len(pool)
		}
		if size < s.NumParents {
			size = s.NumParents
		}

		// Positions into pool, best-first.
		candidates := rng.Perm(len(pool))[:size]
		sort.SliceStable(candidates, func(i, j int) bool {
			return Compare(ranked[pool[candidates[i]]], ranked[pool[candidates[j]]]) > 0
		})

		weights := make([]float64, size)
		for k := range weights {
			weights[k] = math.Pow(1-s.P, float64(k))
		}
		picks, err := WeightedSampleWithoutReplacement(rng, weights, s.NumParents)
		if err != nil {
			return nil, err
		}

		parents := make([]G, len(picks))
		chosen := make(map[int]struct{}, len(picks))
		for i, k := range picks {
			parents[i] = ranked[pool[candidates[k]]].Genome.Clone()
			chosen[candidates[k]] = struct{}{}
		}
		matings = append(matings, parents)

		if s.RemoveSelected {
			kept := pool[:0:0]
			for pos, idx := range pool {
				if _, ok := chosen[pos]; !ok {
					kept = append(kept, idx)
				}
			}
			pool = kept
		}
	}
	return matings, nil
}

func fullPool(n int) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	return pool
}

// WeightedSampleWithoutReplacement draws k distinct indices into weights,
// each draw proportional to the weights still remaining. When every remaining
// weight is zero the first remaining index is taken.
func WeightedSampleWithoutReplacement(rng *rand.Rand, weights []float64, k int) ([]int, error) {
	if k < 0 || k > len(weights) {
		return nil, fmt.Errorf("%w: cannot draw %d of %d", ErrInvalidOperator, k, len(weights))
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight %d = %v", ErrInvalidOperator, i, w)
		}
	}

	remaining := fullPool(len(weights))
	out := make([]int, 0, k)
	for len(out) < k {
		total := 0.0
		for _, idx := range remaining {
			total += weights[idx]
		}

		pick := 0
		if total > 0 {
			r := rng.Float64() * total
			pick = len(remaining) - 1
			acc := 0.0
			for i, idx := range remaining {
				acc += weights[idx]
				if r < acc {
					pick = i
					break
				}
			}
		}
		out = append(out, remaining[pick])
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return out, nil
}
