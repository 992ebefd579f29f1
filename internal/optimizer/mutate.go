package optimizer

import (
	"fmt"
	"math"
	"math/rand"
)

// Mutator perturbs ingredient choices and amounts of a genome in place.
type Mutator struct {
	AmountGrowRatio float64
	MinAmountGrow   uint64
	NumMutationsAmt int
	NumMutationsIng int
	IngredientCount int
}

func (m Mutator) validate() error {
	switch {
	case m.IngredientCount <= 0:
		return fmt.Errorf("%w: ingredient count must be > 0", ErrBadConfig)
	case m.NumMutationsAmt < 0 || m.NumMutationsIng < 0:
		return fmt.Errorf("%w: mutation counts must be >= 0", ErrBadConfig)
	case math.IsNaN(m.AmountGrowRatio) || math.IsInf(m.AmountGrowRatio, 0) || m.AmountGrowRatio < 0:
		return fmt.Errorf("%w: amount grow ratio must be finite and >= 0", ErrBadConfig)
	}
	return nil
}

func (m Mutator) Mutate(rng *rand.Rand, genome *Genome) error {
	if genome == nil {
		return fmt.Errorf("genome is required")
	}
	if err := m.validate(); err != nil {
		return err
	}
	g := *genome

	for _, pos := range samplePositions(rng, len(g), m.NumMutationsIng) {
		candidate := uint32(rng.Intn(m.IngredientCount))
		if !g.Has(candidate) {
			g[pos].Ingredient = candidate
		}
	}

	for _, pos := range samplePositions(rng, len(g), m.NumMutationsAmt) {
		amount := g[pos].Amount
		delta := uint64(math.Floor(rng.Float64() * float64(amount) * m.AmountGrowRatio))
		if delta < m.MinAmountGrow {
			delta = m.MinAmountGrow
		}
		if rng.Intn(2) == 0 {
			g[pos].Amount = amount + delta
		} else {
			g[pos].Amount = amount - min(amount, delta)
		}
	}
	return nil
}

// samplePositions picks up to k distinct positions in [0, n).
func samplePositions(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	return rng.Perm(n)[:k]
}
