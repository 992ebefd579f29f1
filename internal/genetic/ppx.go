package genetic

import (
	"fmt"
	"math/rand"
)

// PPX builds one child by precedence-preservative crossover. For position i
// the parent table[i] contributes its nearest still-present gene at or before
// index i; that gene, identified by key, is then removed from every parent.
// All parents must have the same length as table. A parent that repeats a key
// can run out of genes in its prefix, which fails with ErrNonUniqueParents.
func PPX[E any, K comparable](parents [][]E, table []int, key func(E) K) ([]E, error) {
	if len(parents) == 0 {
		return nil, fmt.Errorf("%w: ppx requires at least one parent", ErrInvalidOperator)
	}
	length := len(parents[0])
	for p, parent := range parents {
		if len(parent) != length {
			return nil, fmt.Errorf("%w: parent %d has length %d, want %d", ErrInvalidOperator, p, len(parent), length)
		}
	}
	if len(table) != length {
		return nil, fmt.Errorf("%w: selection table has length %d, want %d", ErrInvalidOperator, len(table), length)
	}

	present := make([][]bool, len(parents))
	positions := make([]map[K][]int, len(parents))
	for p, parent := range parents {
		present[p] = make([]bool, length)
		positions[p] = make(map[K][]int, length)
		for j, gene := range parent {
			present[p][j] = true
			k := key(gene)
			positions[p][k] = append(positions[p][k], j)
		}
	}

	child := make([]E, 0, length)
	for i, p := range table {
		if p < 0 || p >= len(parents) {
			return nil, fmt.Errorf("%w: selection table entry %d = %d", ErrInvalidOperator, i, p)
		}
		pos := -1
		for j := i; j >= 0; j-- {
			if present[p][j] {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("%w: parent %d has no gene left at or before position %d", ErrNonUniqueParents, p, i)
		}

		gene := parents[p][pos]
		child = append(child, gene)
		k := key(gene)
		for q := range parents {
			for _, j := range positions[q][k] {
				present[q][j] = false
			}
		}
	}
	return child, nil
}

// SelectionTable draws length entries uniformly from [0, parents).
func SelectionTable(rng *rand.Rand, length, parents int) []int {
	table := make([]int, length)
	for i := range table {
		table[i] = rng.Intn(parents)
	}
	return table
}

// PPXCrossover applies PPX to slice genomes. One selection table is drawn per
// invocation and shared by all NumChildren children of that invocation.
type PPXCrossover[S ~[]E, E any, K comparable] struct {
	NumChildren int
	Key         func(E) K
}

func (c PPXCrossover[S, E, K]) Crossover(rng *rand.Rand, parents []S) ([]S, error) {
	if c.NumChildren < 1 {
		return nil, fmt.Errorf("%w: num children must be >= 1", ErrInvalidOperator)
	}
	if c.Key == nil {
		return nil, fmt.Errorf("%w: ppx key is required", ErrInvalidOperator)
	}
	if len(parents) == 0 {
		return nil, fmt.Errorf("%w: ppx requires at least one parent", ErrInvalidOperator)
	}

	views := make([][]E, len(parents))
	for i, parent := range parents {
		views[i] = []E(parent)
	}
	table := SelectionTable(rng, len(views[0]), len(views))

	children := make([]S, 0, c.NumChildren)
	for n := 0; n < c.NumChildren; n++ {
		child, err := PPX(views, table, c.Key)
		if err != nil {
			return nil, err
		}
		children = append(children, S(child))
	}
	return children, nil
}
