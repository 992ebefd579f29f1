package optimizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Snapshot is the sorted population emitted every OutputEvery generations.
type Snapshot struct {
	Generation  int                  `json:"generation"`
	Ingredients []string             `json:"ingredients"`
	Individuals []SnapshotIndividual `json:"individuals"`
}

// SnapshotIndividual carries the effect values as computed (not negated), so
// larger is better for every entry of Fitness.
type SnapshotIndividual struct {
	Fitness    []float64 `json:"fitness"`
	Constraint float64   `json:"constraint"`
	Rank       uint32    `json:"rank"`
	Crowding   Distance  `json:"crowding"`
	Genome     Genome    `json:"genome"`
}

// Best returns the first individual, if any.
func (s Snapshot) Best() (SnapshotIndividual, bool) {
	if len(s.Individuals) == 0 {
		return SnapshotIndividual{}, false
	}
	return s.Individuals[0], true
}

// IngredientName resolves an index against the snapshot's ingredient table.
func (s Snapshot) IngredientName(index uint32) string {
	if int(index) < len(s.Ingredients) {
		return s.Ingredients[index]
	}
	return fmt.Sprintf("#%d", index)
}

// Distance is a crowding distance. Boundary points are +Inf, which JSON
// cannot carry as a number, so it is written as the string "inf".
type Distance float64

func (d Distance) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 1) {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(d))
}

func (d *Distance) UnmarshalJSON(data []byte) error {
	if string(data) == `"inf"` {
		*d = Distance(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode crowding distance: %w", err)
	}
	*d = Distance(v)
	return nil
}

func (d Distance) String() string {
	if math.IsInf(float64(d), 1) {
		return "inf"
	}
	return strconv.FormatFloat(float64(d), 'g', -1, 64)
}
