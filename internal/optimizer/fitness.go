package optimizer

import (
	"fmt"
	"math"

	"alembic/internal/expr"
	"alembic/internal/potion"
)

// potionFitness scores a genome by its mix: one minimized objective per
// effect expression (the negated value) and the negated distance to the
// desired volume as constraint.
type potionFitness struct {
	grimoire          *potion.OptimizedGrimoire
	objectives        []*expr.Program
	volume            float64
	unknownMultiplier float64
}

func (f potionFitness) Fitness(genome Genome) ([]float64, error) {
	mix, err := genome.Mix(f.grimoire)
	if err != nil {
		return nil, err
	}
	env := expr.NewMixEnv(mix, f.unknownMultiplier)
	out := make([]float64, len(f.objectives))
	for i, p := range f.objectives {
		v, err := p.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("effect %q: %w", p, err)
		}
		out[i] = -v
	}
	return out, nil
}

func (f potionFitness) Constraint(genome Genome) (float64, error) {
	mix, err := genome.Mix(f.grimoire)
	if err != nil {
		return 0, err
	}
	return -math.Abs(mix.Volume() - f.volume), nil
}
