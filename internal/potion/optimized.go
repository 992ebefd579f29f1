package potion

import (
	"fmt"

	"alembic/internal/theory"
)

// IngredientFilter decides whether an ingredient takes part in the search.
type IngredientFilter func(name string, ingredient Ingredient) (bool, error)

type OptimizedIngredient struct {
	Name           string       `json:"name"`
	Weight         bool         `json:"weight"`
	LoreMultiplier theory.Value `json:"lore_multiplier"`
	Modifiers      ModifierMap  `json:"modifiers"`
}

// OptimizedGrimoire is the read-only, index-addressed view of a grimoire for a
// single character. Ingredients are ordered by name.
type OptimizedGrimoire struct {
	AlvarinClade            bool                  `json:"alvarin_clade"`
	AdvancedPotionMakingMod float64               `json:"advanced_potion_making_mod"`
	Ingredients             []OptimizedIngredient `json:"ingredients"`
}

// Optimize derives the optimized grimoire for character. A nil filter keeps
// every ingredient.
func Optimize(g Grimoire, c Character, filter IngredientFilter) (*OptimizedGrimoire, error) {
	out := &OptimizedGrimoire{
		AlvarinClade:            c.HasClade(CladeAlchemist),
		AdvancedPotionMakingMod: g.AdvancedPotionMakingMod(c),
	}
	for _, name := range g.IngredientNames() {
		ingredient := g.Ingredients[name]
		if filter != nil {
			keep, err := filter(name, ingredient)
			if err != nil {
				return nil, fmt.Errorf("filter ingredient %s: %w", name, err)
			}
			if !keep {
				continue
			}
		}
		out.Ingredients = append(out.Ingredients, OptimizedIngredient{
			Name:           name,
			Weight:         ingredient.Weight,
			LoreMultiplier: g.LoreMultiplier(c, ingredient.Skill),
			Modifiers:      ingredient.Modifiers,
		})
	}
	return out, nil
}

func (o *OptimizedGrimoire) Len() int {
	return len(o.Ingredients)
}

func (o *OptimizedGrimoire) Names() []string {
	names := make([]string, len(o.Ingredients))
	for i, ingredient := range o.Ingredients {
		names[i] = ingredient.Name
	}
	return names
}

// IndexOf returns the index of the named ingredient.
func (o *OptimizedGrimoire) IndexOf(name string) (int, bool) {
	for i, ingredient := range o.Ingredients {
		if ingredient.Name == name {
			return i, true
		}
	}
	return -1, false
}
