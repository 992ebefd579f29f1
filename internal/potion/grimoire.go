// Package potion holds the potion data model (skills, ingredients,
// characters and their grimoire) and the simulator that turns a mix of
// ingredients into a volume and per-effect values.
package potion

import (
	"errors"
	"maps"
	"slices"
	"sort"

	"alembic/internal/theory"
)

const (
	// CladeAlchemist multiplies the final volume of every mix by 1.1.
	CladeAlchemist = "Alchemist"
	// SkillAdvancedPotionMaking scales every effect by 1 + 0.2*value/100.
	SkillAdvancedPotionMaking = "Advanced Potion Making"

	MaxSkillValue = 100
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrInvalidValue  = errors.New("invalid value")
)

type Skill struct {
	Effectiveness theory.Value `json:"effectiveness" yaml:"effectiveness"`
	Parent        string       `json:"parent,omitempty" yaml:"parent,omitempty"`
	Parent2       string       `json:"parent_2,omitempty" yaml:"parent_2,omitempty"`
}

type Ingredient struct {
	Skill     string      `json:"skill,omitempty" yaml:"skill,omitempty"`
	Weight    bool        `json:"weight" yaml:"weight"`
	Modifiers ModifierMap `json:"modifiers" yaml:"modifiers"`
}

// Character carries clade tags (kept sorted, unique) and skill values in
// [0, 100].
type Character struct {
	Clades []string       `json:"clades,omitempty" yaml:"clades,omitempty"`
	Skills map[string]int `json:"skills" yaml:"skills"`
}

func NewCharacter() Character {
	return Character{Skills: map[string]int{}}
}

func (c Character) HasClade(clade string) bool {
	_, found := slices.BinarySearch(c.Clades, clade)
	return found
}

func (c *Character) AddClade(clade string) {
	i, found := slices.BinarySearch(c.Clades, clade)
	if found {
		return
	}
	c.Clades = slices.Insert(c.Clades, i, clade)
}

func (c *Character) RemoveClade(clade string) {
	i, found := slices.BinarySearch(c.Clades, clade)
	if !found {
		return
	}
	c.Clades = slices.Delete(c.Clades, i, i+1)
	if len(c.Clades) == 0 {
		c.Clades = nil
	}
}

func (c Character) clone() Character {
	out := Character{Skills: maps.Clone(c.Skills)}
	if out.Skills == nil {
		out.Skills = map[string]int{}
	}
	if len(c.Clades) > 0 {
		out.Clades = slices.Clone(c.Clades)
	}
	return out
}

// Grimoire is the catalogue of skills, ingredients and characters. Go map
// order is never observed: every outcome-relevant traversal goes through the
// sorted name accessors.
type Grimoire struct {
	Skills      map[string]Skill      `json:"skills" yaml:"skills"`
	Ingredients map[string]Ingredient `json:"ingredients" yaml:"ingredients"`
	Characters  map[string]Character  `json:"characters" yaml:"characters"`
}

func NewGrimoire() Grimoire {
	return Grimoire{
		Skills:      map[string]Skill{},
		Ingredients: map[string]Ingredient{},
		Characters:  map[string]Character{},
	}
}

func (g Grimoire) Clone() Grimoire {
	out := NewGrimoire()
	maps.Copy(out.Skills, g.Skills)
	maps.Copy(out.Ingredients, g.Ingredients)
	for name, c := range g.Characters {
		out.Characters[name] = c.clone()
	}
	return out
}

func (g Grimoire) SkillNames() []string {
	return sortedKeys(g.Skills)
}

func (g Grimoire) IngredientNames() []string {
	return sortedKeys(g.Ingredients)
}

func (g Grimoire) CharacterNames() []string {
	return sortedKeys(g.Characters)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
