package pareto

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestRanksPeelFrontsInInputOrder(t *testing.T) {
	points := [][]float64{
		{1, 5}, {2, 4}, {3, 3}, {2, 5}, {4, 4}, {5, 5}, {3, 3},
	}
	want := []uint32{0, 0, 0, 1, 2, 3, 1}
	got := Ranks(points)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank mismatch at %d: got=%v want=%v", i, got, want)
		}
	}
}

func TestRanksAgreeWithDominance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := randomPoints(rng, 60, 3)
	ranks := Ranks(points)
	for i := range points {
		for j := range points {
			if Dominates(points[i], points[j]) && ranks[i] >= ranks[j] {
				t.Fatalf("point %d dominates %d but ranks are %d >= %d", i, j, ranks[i], ranks[j])
			}
		}
	}
	for i := range points {
		if ranks[i] == 0 {
			continue
		}
		dominated := false
		for j := range points {
			if ranks[j] == ranks[i]-1 && Dominates(points[j], points[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			t.Fatalf("point %d at rank %d has no dominator in the previous front", i, ranks[i])
		}
	}
}

func TestCrowdingBoundariesAndInteriorDistances(t *testing.T) {
	points := [][]float64{{0.7, 0.1}, {0.5, 0.8}, {0.1, 0.7}, {0.6, 0.5}, {0.3, 0.9}}
	want := []float64{math.Inf(1), 0.75, math.Inf(1), 1.0833, math.Inf(1)}
	got := Crowding(points)
	for i := range want {
		if math.IsInf(want[i], 1) {
			if !math.IsInf(got[i], 1) {
				t.Fatalf("expected +Inf crowding at %d, got %v", i, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > 0.01 {
			t.Fatalf("crowding mismatch at %d: got=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestCrowdingSkipsZeroRangeObjective(t *testing.T) {
	points := [][]float64{{1, 0}, {1, 1}, {1, 3}}
	got := Crowding(points)
	if !math.IsInf(got[0], 1) || !math.IsInf(got[2], 1) {
		t.Fatalf("expected boundary points at +Inf: %v", got)
	}
	if math.Abs(got[1]-1) > 1e-12 {
		t.Fatalf("expected interior distance 1 from second objective only, got %v", got[1])
	}

	flat := Crowding([][]float64{{2, 2}, {2, 2}, {2, 2}})
	for i, d := range flat {
		if d != 0 {
			t.Fatalf("expected zero crowding for flat set at %d, got %v", i, d)
		}
	}
}

func TestAssignIsPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	points := randomPoints(rng, 40, 2)
	base, err := Assign(points)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	for trial := 0; trial < 5; trial++ {
		perm := rng.Perm(len(points))
		shuffled := make([][]float64, len(points))
		for to, from := range perm {
			shuffled[to] = points[from]
		}
		got, err := Assign(shuffled)
		if err != nil {
			t.Fatalf("assign shuffled: %v", err)
		}
		for to, from := range perm {
			if got[to] != base[from] {
				t.Fatalf("trial %d: point %d changed advantage: %+v vs %+v", trial, from, got[to], base[from])
			}
		}
	}
}

func TestAssignRejectsNonFiniteAndRaggedInput(t *testing.T) {
	if _, err := Assign([][]float64{{1, math.NaN()}}); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if _, err := Assign([][]float64{{1, math.Inf(-1)}}); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite for -Inf, got %v", err)
	}
	if _, err := Assign([][]float64{{1, 2}, {1}}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	out, err := Assign(nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty assignment, got %v %v", out, err)
	}
}

func TestAdvantageOrdering(t *testing.T) {
	inf := math.Inf(1)
	cases := []struct {
		a, b Advantage
		want int
	}{
		{Advantage{0, 0}, Advantage{1, inf}, 1},
		{Advantage{2, inf}, Advantage{1, 0}, -1},
		{Advantage{1, 0.5}, Advantage{1, 0.25}, 1},
		{Advantage{1, 0.25}, Advantage{1, 0.5}, -1},
		{Advantage{1, inf}, Advantage{1, inf}, 0},
	}
	for _, tc := range cases {
		if got := tc.a.Compare(tc.b); got != tc.want {
			t.Fatalf("compare %+v vs %+v: got %d want %d", tc.a, tc.b, got, tc.want)
		}
		if tc.a.Better(tc.b) != (tc.want > 0) {
			t.Fatalf("better %+v vs %+v disagrees with compare", tc.a, tc.b)
		}
	}
}

func randomPoints(rng *rand.Rand, n, dim int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dim)
		for k := range points[i] {
			points[i][k] = rng.Float64()
		}
	}
	return points
}
