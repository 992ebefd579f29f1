// Package pareto assigns non-dominated front ranks and crowding distances to
// vectors of objective values. Every coordinate is minimized.
package pareto

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNonFinite = errors.New("objective value is not finite")
	ErrDimension = errors.New("objective vectors differ in dimension")
)

// Advantage orders individuals within a generation: a lower front rank wins,
// ties go to the larger crowding distance.
type Advantage struct {
	Rank     uint32  `json:"rank"`
	Crowding float64 `json:"crowding"`
}

// Compare returns a positive number when a is better than b, negative when
// worse and 0 when equal.
func (a Advantage) Compare(b Advantage) int {
	switch {
	case a.Rank < b.Rank:
		return 1
	case a.Rank > b.Rank:
		return -1
	case a.Crowding > b.Crowding:
		return 1
	case a.Crowding < b.Crowding:
		return -1
	default:
		return 0
	}
}

func (a Advantage) Better(b Advantage) bool {
	return a.Compare(b) > 0
}

// Dominates reports whether a is no worse than b on every objective and
// strictly better on at least one.
func Dominates(a, b []float64) bool {
	strictly := false
	for k := range a {
		if a[k] > b[k] {
			return false
		}
		if a[k] < b[k] {
			strictly = true
		}
	}
	return strictly
}

// Validate rejects ragged input and non-finite coordinates.
func Validate(points [][]float64) error {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return fmt.Errorf("%w: point %d has %d objectives, want %d", ErrDimension, i, len(p), dim)
		}
		for k, x := range p {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: point %d objective %d = %v", ErrNonFinite, i, k, x)
			}
		}
	}
	return nil
}

// Assign validates points and returns one Advantage per point.
func Assign(points [][]float64) ([]Advantage, error) {
	if err := Validate(points); err != nil {
		return nil, err
	}
	ranks := Ranks(points)
	crowding := Crowding(points)
	out := make([]Advantage, len(points))
	for i := range points {
		out[i] = Advantage{Rank: ranks[i], Crowding: crowding[i]}
	}
	return out, nil
}

// Ranks peels successive efficient fronts. Within a pass every unranked point
// starts marked; each still-marked point in input order then unmarks every
// marked point that is no better than it on any objective. Identical points
// therefore land in successive fronts, earliest first.
func Ranks(points [][]float64) []uint32 {
	ranks := make([]uint32, len(points))
	remaining := make([]int, len(points))
	for i := range remaining {
		remaining[i] = i
	}

	efficient := make([]bool, len(points))
	for rank := uint32(0); len(remaining) > 0; rank++ {
		marks := efficient[:len(remaining)]
		for i := range marks {
			marks[i] = true
		}
		for i, pi := range remaining {
			if !marks[i] {
				continue
			}
			for j, pj := range remaining {
				if marks[j] {
					marks[j] = anyLess(points[pj], points[pi])
				}
			}
			marks[i] = true
		}

		next := remaining[:0:0]
		for i, p := range remaining {
			if marks[i] {
				ranks[p] = rank
			} else {
				next = append(next, p)
			}
		}
		remaining = next
	}
	return ranks
}

func anyLess(a, b []float64) bool {
	for k := range a {
		if a[k] < b[k] {
			return true
		}
	}
	return false
}

// Crowding computes crowding distances across the whole set. For each
// objective the two extreme points get +Inf and every interior point adds the
// normalized gap between its neighbours. Objectives with zero range are
// skipped.
func Crowding(points [][]float64) []float64 {
	n := len(points)
	distance := make([]float64, n)
	if n == 0 {
		return distance
	}

	order := make([]int, n)
	for e := range points[0] {
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return points[order[a]][e] < points[order[b]][e]
		})

		lo := points[order[0]][e]
		hi := points[order[n-1]][e]
		if hi == lo {
			continue
		}
		distance[order[0]] = math.Inf(1)
		distance[order[n-1]] = math.Inf(1)
		for k := 1; k < n-1; k++ {
			distance[order[k]] += (points[order[k+1]][e] - points[order[k-1]][e]) / (hi - lo)
		}
	}
	return distance
}
