package optimizer

import (
	"fmt"
	"math"

	"alembic/internal/potion"
)

type MutateConfig struct {
	AmountGrowRatio float64 `json:"amount_grow_ratio"`
	MinAmountGrow   uint64  `json:"min_amount_grow"`
	NumMutationsAmt int     `json:"num_mutations_amt"`
	NumMutationsIng int     `json:"num_mutations_ing"`
}

type SelectConfig struct {
	TournamentSize int     `json:"tournament_size"`
	Probability    float64 `json:"probability"`
	NumParents     int     `json:"num_parents"`
	NumMatings     int     `json:"num_matings"`
	RemoveSelected bool    `json:"remove_selected"`
}

// Config describes one optimization run. Seed and generation count fully
// determine the result.
type Config struct {
	Seed        int64 `json:"seed"`
	Generations int   `json:"generations"`
	MaxRetries  int   `json:"max_retries"`

	Grimoire  potion.Script `json:"grimoire,omitempty"`
	Character string        `json:"character"`

	PopulationSize int `json:"population_size"`
	NumChildren    int `json:"num_children"`
	OutputEvery    int `json:"output_every"`

	Volume             float64  `json:"volume"`
	Effects            []string `json:"effects"`
	IncludeIngredients string   `json:"include_ingredients,omitempty"`
	Ingredients        []string `json:"ingredients,omitempty"`
	UnknownMultiplier  float64  `json:"unknown_multiplier"`

	Mutate MutateConfig `json:"mutate"`
	Select SelectConfig `json:"select"`
}

func (c Config) validate() error {
	finite := []struct {
		name  string
		value float64
	}{
		{"volume", c.Volume},
		{"unknown_multiplier", c.UnknownMultiplier},
		{"amount_grow_ratio", c.Mutate.AmountGrowRatio},
		{"select probability", c.Select.Probability},
	}
	for _, f := range finite {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrBadConfig, f.name, f.value)
		}
	}

	switch {
	case c.Generations < 0:
		return fmt.Errorf("%w: generations must be >= 0", ErrBadConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must be >= 0", ErrBadConfig)
	case c.Character == "":
		return fmt.Errorf("%w: character is required", ErrBadConfig)
	case c.PopulationSize <= 0:
		return fmt.Errorf("%w: population size must be > 0", ErrBadConfig)
	case c.NumChildren < 1:
		return fmt.Errorf("%w: num children must be >= 1", ErrBadConfig)
	case c.OutputEvery <= 0:
		return fmt.Errorf("%w: output every must be > 0", ErrBadConfig)
	case len(c.Effects) == 0:
		return fmt.Errorf("%w: at least one effect expression is required", ErrBadConfig)
	case c.Mutate.AmountGrowRatio < 0:
		return fmt.Errorf("%w: amount grow ratio must be >= 0", ErrBadConfig)
	case c.Mutate.NumMutationsAmt < 0 || c.Mutate.NumMutationsIng < 0:
		return fmt.Errorf("%w: mutation counts must be >= 0", ErrBadConfig)
	case c.Select.TournamentSize < 1:
		return fmt.Errorf("%w: tournament size must be >= 1", ErrBadConfig)
	case c.Select.Probability < 0 || c.Select.Probability > 1:
		return fmt.Errorf("%w: select probability must be in [0,1]", ErrBadConfig)
	case c.Select.NumParents < 1:
		return fmt.Errorf("%w: num parents must be >= 1", ErrBadConfig)
	case c.Select.NumParents > c.PopulationSize:
		return fmt.Errorf("%w: num parents %d exceeds population size %d", ErrBadConfig, c.Select.NumParents, c.PopulationSize)
	case c.Select.NumMatings < 1:
		return fmt.Errorf("%w: num matings must be >= 1", ErrBadConfig)
	}
	return nil
}
