package genetic

import (
	"fmt"
	"math/rand"
)

// ElitistReinserter ranks current and offspring together and keeps the best
// len(current) by constraint, then advantage.
type ElitistReinserter[G Genotype[G], A Advantage[A]] struct{}

func (ElitistReinserter[G, A]) Reinsert(_ *rand.Rand, current, offspring []Individual[G], advantage AdvantageFunc[A]) ([]Individual[G], error) {
	if advantage == nil {
		return nil, fmt.Errorf("%w: advantage function is required", ErrInvalidOperator)
	}
	all := make([]Individual[G], 0, len(current)+len(offspring))
	all = append(all, current...)
	all = append(all, offspring...)

	ranked, err := Rank(all, advantage)
	if err != nil {
		return nil, err
	}
	SortBest(ranked)

	next := make([]Individual[G], len(current))
	for i := range next {
		next[i] = ranked[i].Individual
	}
	return next, nil
}
