// Package genetic is the evolutionary kernel: individuals, operator roles and
// the loop that advances a population by one generation. It knows nothing
// about potions; the optimizer package binds it to the potion model.
package genetic

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var (
	ErrEvaluationFailed = errors.New("fitness evaluation failed")
	ErrNonUniqueParents = errors.New("parents have non-unique genes")
	ErrPopulationSize   = errors.New("population size changed")
	ErrInvalidOperator  = errors.New("invalid operator configuration")
)

// Genotype is implemented by genome types. Clone must return an independent
// copy.
type Genotype[G any] interface {
	Clone() G
}

// Advantage is implemented by per-generation ranking values. Compare returns
// a positive number when the receiver is better.
type Advantage[A any] interface {
	Compare(other A) int
}

type Individual[G any] struct {
	Genome     G
	Fitness    []float64
	Constraint float64
}

type Ranked[G any, A any] struct {
	Individual[G]
	Advantage A
}

// FitnessFunc maps a genome to its objective vector (minimized) and its
// constraint (maximized).
type FitnessFunc[G any] interface {
	Fitness(genome G) ([]float64, error)
	Constraint(genome G) (float64, error)
}

// AdvantageFunc ranks a population from its fitness vectors.
type AdvantageFunc[A any] func(fitness [][]float64) ([]A, error)

type Mutator[G any] interface {
	Mutate(rng *rand.Rand, genome *G) error
}

type Crossover[G any] interface {
	Crossover(rng *rand.Rand, parents []G) ([]G, error)
}

// Selector turns a ranked population into matings, each a fixed-size list of
// parent genomes.
type Selector[G any, A any] interface {
	Select(rng *rand.Rand, ranked []Ranked[G, A]) ([][]G, error)
}

// Reinserter merges offspring into the current population and returns a
// population of the current size.
type Reinserter[G any, A any] interface {
	Reinsert(rng *rand.Rand, current, offspring []Individual[G], advantage AdvantageFunc[A]) ([]Individual[G], error)
}

// Capabilities is the operator record the engine runs with.
type Capabilities[G any, A any] struct {
	Fitness    FitnessFunc[G]
	Advantage  AdvantageFunc[A]
	Mutator    Mutator[G]
	Crossover  Crossover[G]
	Selector   Selector[G, A]
	Reinserter Reinserter[G, A]
}

func (c Capabilities[G, A]) validate() error {
	switch {
	case c.Fitness == nil:
		return fmt.Errorf("%w: fitness function is required", ErrInvalidOperator)
	case c.Advantage == nil:
		return fmt.Errorf("%w: advantage function is required", ErrInvalidOperator)
	case c.Mutator == nil:
		return fmt.Errorf("%w: mutator is required", ErrInvalidOperator)
	case c.Crossover == nil:
		return fmt.Errorf("%w: crossover is required", ErrInvalidOperator)
	case c.Selector == nil:
		return fmt.Errorf("%w: selector is required", ErrInvalidOperator)
	case c.Reinserter == nil:
		return fmt.Errorf("%w: reinserter is required", ErrInvalidOperator)
	}
	return nil
}

// Evaluate materializes an individual and rejects non-finite results.
func Evaluate[G any](fitness FitnessFunc[G], genome G) (Individual[G], error) {
	values, err := fitness.Fitness(genome)
	if err != nil {
		return Individual[G]{}, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}
	for k, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Individual[G]{}, fmt.Errorf("%w: objective %d = %v", ErrEvaluationFailed, k, v)
		}
	}
	constraint, err := fitness.Constraint(genome)
	if err != nil {
		return Individual[G]{}, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}
	if math.IsNaN(constraint) || math.IsInf(constraint, 0) {
		return Individual[G]{}, fmt.Errorf("%w: constraint = %v", ErrEvaluationFailed, constraint)
	}
	return Individual[G]{Genome: genome, Fitness: values, Constraint: constraint}, nil
}

// Rank pairs every individual with its advantage.
func Rank[G any, A any](individuals []Individual[G], advantage AdvantageFunc[A]) ([]Ranked[G, A], error) {
	fitness := make([][]float64, len(individuals))
	for i, ind := range individuals {
		fitness[i] = ind.Fitness
	}
	advantages, err := advantage(fitness)
	if err != nil {
		return nil, err
	}
	if len(advantages) != len(individuals) {
		return nil, fmt.Errorf("advantage function returned %d values for %d individuals", len(advantages), len(individuals))
	}
	ranked := make([]Ranked[G, A], len(individuals))
	for i, ind := range individuals {
		ranked[i] = Ranked[G, A]{Individual: ind, Advantage: advantages[i]}
	}
	return ranked, nil
}

// Compare orders by constraint, then advantage. Positive means a is better.
func Compare[G any, A Advantage[A]](a, b Ranked[G, A]) int {
	switch {
	case a.Constraint > b.Constraint:
		return 1
	case a.Constraint < b.Constraint:
		return -1
	default:
		return a.Advantage.Compare(b.Advantage)
	}
}

// SortBest sorts ranked individuals best-first. Ties keep their input order.
func SortBest[G any, A Advantage[A]](ranked []Ranked[G, A]) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return Compare(ranked[i], ranked[j]) > 0
	})
}
