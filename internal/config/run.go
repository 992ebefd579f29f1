package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"alembic/internal/optimizer"
	"alembic/internal/potion"
)

var ErrInvalidRun = errors.New("invalid run document")

var runValidate *validator.Validate

func init() {
	runValidate = validator.New()
	_ = runValidate.RegisterValidation("finite", validateFinite)
}

func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type MutateDocument struct {
	AmountGrowRatio float64 `yaml:"amount_grow_ratio" validate:"finite,gte=0"`
	MinAmountGrow   uint64  `yaml:"min_amount_grow"`
	NumMutationsAmt int     `yaml:"num_mutations_amt" validate:"gte=0"`
	NumMutationsIng int     `yaml:"num_mutations_ing" validate:"gte=0"`
}

type SelectDocument struct {
	TournamentSize int     `yaml:"tournament_size" validate:"gte=1"`
	Probability    float64 `yaml:"probability" validate:"finite,gte=0,lte=1"`
	NumParents     int     `yaml:"num_parents" validate:"gte=1"`
	NumMatings     int     `yaml:"num_matings" validate:"gte=1"`
	RemoveSelected bool    `yaml:"remove_selected"`
}

// RunDocument is the YAML form of one optimization run. BaseGrimoire names a
// stored grimoire; Grimoire is an update script applied on top of it.
type RunDocument struct {
	Seed        int64 `yaml:"seed"`
	Generations int   `yaml:"generations" validate:"gte=0"`
	MaxRetries  int   `yaml:"max_retries" validate:"gte=0"`

	BaseGrimoire string        `yaml:"base_grimoire"`
	Grimoire     potion.Script `yaml:"grimoire"`
	Character    string        `yaml:"character" validate:"required"`

	PopulationSize int `yaml:"population_size" validate:"gt=0"`
	NumChildren    int `yaml:"num_children" validate:"gte=1"`
	OutputEvery    int `yaml:"output_every" validate:"gt=0"`

	Volume             float64  `yaml:"volume" validate:"finite"`
	Effects            []string `yaml:"effects" validate:"required,min=1,dive,required"`
	IncludeIngredients string   `yaml:"include_ingredients"`
	Ingredients        []string `yaml:"ingredients" validate:"omitempty,dive,required"`
	UnknownMultiplier  float64  `yaml:"unknown_multiplier" validate:"finite"`

	Mutate MutateDocument `yaml:"mutate"`
	Select SelectDocument `yaml:"select"`
}

// DefaultRun returns the values a run document starts from before YAML is
// decoded over it.
func DefaultRun() RunDocument {
	return RunDocument{
		Seed:              1,
		Generations:       100,
		MaxRetries:        1,
		PopulationSize:    100,
		NumChildren:       1,
		OutputEvery:       10,
		UnknownMultiplier: 0.5,
		Mutate: MutateDocument{
			AmountGrowRatio: 0.5,
			MinAmountGrow:   1,
			NumMutationsAmt: 1,
			NumMutationsIng: 1,
		},
		Select: SelectDocument{
			TournamentSize: 4,
			Probability:    0.8,
			NumParents:     2,
			NumMatings:     50,
		},
	}
}

func LoadRun(path string) (RunDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunDocument{}, err
	}
	doc, err := ParseRun(data)
	if err != nil {
		return RunDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseRun decodes a YAML run document over DefaultRun and validates it.
// Unknown keys are rejected.
func ParseRun(data []byte) (RunDocument, error) {
	doc := DefaultRun()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return RunDocument{}, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	if err := doc.Validate(); err != nil {
		return RunDocument{}, err
	}
	return doc, nil
}

func (d RunDocument) Validate() error {
	if err := runValidate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	if d.Select.NumParents > d.PopulationSize {
		return fmt.Errorf("%w: select.num_parents %d exceeds population_size %d", ErrInvalidRun, d.Select.NumParents, d.PopulationSize)
	}
	return nil
}

func (d RunDocument) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// ToOptimizer maps the document onto an optimizer configuration. The
// document's inline grimoire script travels with the configuration so a
// stored run can be replayed.
func (d RunDocument) ToOptimizer() optimizer.Config {
	return optimizer.Config{
		Seed:               d.Seed,
		Generations:        d.Generations,
		MaxRetries:         d.MaxRetries,
		Grimoire:           append(potion.Script(nil), d.Grimoire...),
		Character:          d.Character,
		PopulationSize:     d.PopulationSize,
		NumChildren:        d.NumChildren,
		OutputEvery:        d.OutputEvery,
		Volume:             d.Volume,
		Effects:            append([]string(nil), d.Effects...),
		IncludeIngredients: d.IncludeIngredients,
		Ingredients:        append([]string(nil), d.Ingredients...),
		UnknownMultiplier:  d.UnknownMultiplier,
		Mutate: optimizer.MutateConfig{
			AmountGrowRatio: d.Mutate.AmountGrowRatio,
			MinAmountGrow:   d.Mutate.MinAmountGrow,
			NumMutationsAmt: d.Mutate.NumMutationsAmt,
			NumMutationsIng: d.Mutate.NumMutationsIng,
		},
		Select: optimizer.SelectConfig{
			TournamentSize: d.Select.TournamentSize,
			Probability:    d.Select.Probability,
			NumParents:     d.Select.NumParents,
			NumMatings:     d.Select.NumMatings,
			RemoveSelected: d.Select.RemoveSelected,
		},
	}
}
