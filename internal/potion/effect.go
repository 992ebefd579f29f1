package potion

import (
	"fmt"

	"alembic/internal/theory"
)

// Effect is one of the seven scalar potion properties.
type Effect int

const (
	DH Effect = iota
	DP
	HoT
	PoT
	HL
	PL
	A
)

const NumEffects = 7

var effectNames = [NumEffects]string{"dh", "dp", "hot", "pot", "hl", "pl", "a"}

func Effects() []Effect {
	return []Effect{DH, DP, HoT, PoT, HL, PL, A}
}

// String returns the short lower-case name used in scripts and expressions.
func (e Effect) String() string {
	if e < 0 || int(e) >= NumEffects {
		return fmt.Sprintf("effect(%d)", int(e))
	}
	return effectNames[e]
}

func ParseEffect(name string) (Effect, error) {
	for i, candidate := range effectNames {
		if candidate == name {
			return Effect(i), nil
		}
	}
	return 0, fmt.Errorf("%w: effect %q", ErrUnknownEntity, name)
}

// Modifier is the per-effect (term, multiplier) pair of an ingredient.
type Modifier struct {
	Term       theory.Value `json:"term" yaml:"term"`
	Multiplier theory.Value `json:"multiplier" yaml:"multiplier"`
}

// ModifierMap holds one Modifier per effect, indexed by Effect.
type ModifierMap [NumEffects]Modifier

func (m ModifierMap) Get(e Effect) Modifier {
	return m[e]
}
