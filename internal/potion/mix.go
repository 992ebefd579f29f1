package potion

import (
	"fmt"
	"math"

	"alembic/internal/theory"
)

const alchemistVolumeBonus = 1.1

type MixEntry struct {
	Index  uint32
	Amount uint64
}

// Mix is a multiset of ingredient amounts over an optimized grimoire. Entries
// are traversed in the order given, which fixes the floating point order of
// sums and products.
type Mix struct {
	grimoire *OptimizedGrimoire
	entries  []MixEntry
}

func NewMix(grimoire *OptimizedGrimoire, entries []MixEntry) (Mix, error) {
	if grimoire == nil {
		return Mix{}, fmt.Errorf("optimized grimoire is required")
	}
	for _, entry := range entries {
		if int(entry.Index) >= len(grimoire.Ingredients) {
			return Mix{}, fmt.Errorf("%w: ingredient index %d out of range [0,%d)", ErrUnknownEntity, entry.Index, len(grimoire.Ingredients))
		}
	}
	return Mix{grimoire: grimoire, entries: entries}, nil
}

func (m Mix) Entries() []MixEntry {
	return m.entries
}

// Total is the summed amount over every entry.
func (m Mix) Total() uint64 {
	var total uint64
	for _, entry := range m.entries {
		total += entry.Amount
	}
	return total
}

// Volume is (sum of weighted amounts - 1) / 10, times 1.1 for the Alchemist
// clade. It is not meaningful for an empty mix.
func (m Mix) Volume() float64 {
	var weighted uint64
	for _, entry := range m.entries {
		if m.grimoire.Ingredients[entry.Index].Weight {
			weighted += entry.Amount
		}
	}
	volume := (float64(weighted) - 1) / 10
	if m.grimoire.AlvarinClade {
		volume *= alchemistVolumeBonus
	}
	return volume
}

// Effect computes apm_mod * sum * multiplier where, with w_i = amount_i/N,
// sum = Σ lore_i*term_i*w_i and multiplier = Π (1 + mult_i*sqrt(w_i)).
// Entries with a zero amount do not contribute, not even their tags.
func (m Mix) Effect(e Effect) theory.Value {
	total := m.Total()
	if total == 0 {
		return theory.Known(0)
	}
	n := float64(total)
	multiplier := theory.Known(1)
	sum := theory.Known(0)
	for _, entry := range m.entries {
		if entry.Amount == 0 {
			continue
		}
		ingredient := m.grimoire.Ingredients[entry.Index]
		modifier := ingredient.Modifiers[e]
		w := float64(entry.Amount) / n
		multiplier = multiplier.Mul(theory.Known(1).Add(modifier.Multiplier.Mul(theory.Known(math.Sqrt(w)))))
		sum = sum.Add(ingredient.LoreMultiplier.Mul(modifier.Term).Mul(theory.Known(w)))
	}
	return theory.Known(m.grimoire.AdvancedPotionMakingMod).Mul(sum).Mul(multiplier)
}

// Effects evaluates every effect in Effect order.
func (m Mix) Effects() [NumEffects]theory.Value {
	var out [NumEffects]theory.Value
	for _, e := range Effects() {
		out[e] = m.Effect(e)
	}
	return out
}
