package genetic

import (
	"fmt"
	"math/rand"
)

// Engine owns a population and advances it one generation at a time. It is
// not safe for concurrent use.
type Engine[G Genotype[G], A Advantage[A]] struct {
	caps       Capabilities[G, A]
	population []Individual[G]
	generation int
}

// NewEngine evaluates the initial genomes and returns an engine at
// generation 0.
func NewEngine[G Genotype[G], A Advantage[A]](caps Capabilities[G, A], initial []G) (*Engine[G, A], error) {
	if err := caps.validate(); err != nil {
		return nil, err
	}
	if len(initial) == 0 {
		return nil, fmt.Errorf("initial population is empty")
	}
	population := make([]Individual[G], len(initial))
	for i, genome := range initial {
		ind, err := Evaluate(caps.Fitness, genome)
		if err != nil {
			return nil, fmt.Errorf("initial individual %d: %w", i, err)
		}
		population[i] = ind
	}
	return &Engine[G, A]{caps: caps, population: population}, nil
}

func (e *Engine[G, A]) Generation() int {
	return e.generation
}

func (e *Engine[G, A]) Size() int {
	return len(e.population)
}

// Population returns a copy of the current individuals.
func (e *Engine[G, A]) Population() []Individual[G] {
	out := make([]Individual[G], len(e.population))
	copy(out, e.population)
	return out
}

// Ranked returns the current population ranked and sorted best-first.
func (e *Engine[G, A]) Ranked() ([]Ranked[G, A], error) {
	ranked, err := Rank(e.population, e.caps.Advantage)
	if err != nil {
		return nil, err
	}
	SortBest(ranked)
	return ranked, nil
}

// Step advances one generation: rank, select, cross over, mutate, evaluate,
// reinsert. On error the population is left as it was.
func (e *Engine[G, A]) Step(rng *rand.Rand) error {
	ranked, err := Rank(e.population, e.caps.Advantage)
	if err != nil {
		return fmt.Errorf("rank generation %d: %w", e.generation, err)
	}

	matings, err := e.caps.Selector.Select(rng, ranked)
	if err != nil {
		return fmt.Errorf("select generation %d: %w", e.generation, err)
	}

	var children []G
	for i, parents := range matings {
		offspring, err := e.caps.Crossover.Crossover(rng, parents)
		if err != nil {
			return fmt.Errorf("crossover mating %d generation %d: %w", i, e.generation, err)
		}
		children = append(children, offspring...)
	}

	for i := range children {
		if err := e.caps.Mutator.Mutate(rng, &children[i]); err != nil {
			return fmt.Errorf("mutate child %d generation %d: %w", i, e.generation, err)
		}
	}

	offspring := make([]Individual[G], len(children))
	for i, child := range children {
		ind, err := Evaluate(e.caps.Fitness, child)
		if err != nil {
			return fmt.Errorf("evaluate child %d generation %d: %w", i, e.generation, err)
		}
		offspring[i] = ind
	}

	next, err := e.caps.Reinserter.Reinsert(rng, e.Population(), offspring, e.caps.Advantage)
	if err != nil {
		return fmt.Errorf("reinsert generation %d: %w", e.generation, err)
	}
	if len(next) != len(e.population) {
		return fmt.Errorf("%w: got=%d want=%d", ErrPopulationSize, len(next), len(e.population))
	}

	e.population = next
	e.generation++
	return nil
}
