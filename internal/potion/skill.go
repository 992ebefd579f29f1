package potion

import "alembic/internal/theory"

// maxSkillDepth bounds parent traversal; deeper chains are treated as cycles.
const maxSkillDepth = 64

// cyclicEffectiveness replaces the effectiveness of a skill whose parent chain
// loops back on itself.
var cyclicEffectiveness = theory.Theoretical(2.0 / 3.0)

// EffectiveSkill returns the character's value for a skill clamped by the
// minimum over its parent chain. A missing parent counts as 100. cyclic is
// true when the chain loops or exceeds maxSkillDepth; the value is then 0.
func (g Grimoire) EffectiveSkill(c Character, name string) (value int, cyclic bool) {
	visited := make(map[string]bool)
	return g.effectiveSkill(c, name, visited, 0)
}

func (g Grimoire) effectiveSkill(c Character, name string, visited map[string]bool, depth int) (int, bool) {
	if visited[name] || depth > maxSkillDepth {
		return 0, true
	}
	visited[name] = true
	defer delete(visited, name)

	value := clampSkill(c.Skills[name])
	skill, ok := g.Skills[name]
	if !ok {
		return value, false
	}
	for _, parent := range [2]string{skill.Parent, skill.Parent2} {
		if parent == "" {
			continue
		}
		parentValue, cyclic := g.effectiveSkill(c, parent, visited, depth+1)
		if cyclic {
			return 0, true
		}
		value = min(value, parentValue)
	}
	return value, false
}

// LoreMultiplier is 1 + effectiveness*value/100 for the named skill. An empty
// skill name yields Known(1); an unresolved skill behaves as the zero Skill.
func (g Grimoire) LoreMultiplier(c Character, skillName string) theory.Value {
	if skillName == "" {
		return theory.Known(1)
	}
	skill := g.Skills[skillName]
	value, cyclic := g.EffectiveSkill(c, skillName)
	effectiveness := skill.Effectiveness
	if cyclic {
		effectiveness = cyclicEffectiveness
		value = 0
	}
	return theory.Known(1).Add(effectiveness.Mul(theory.Known(float64(value) / 100)))
}

// AdvancedPotionMakingMod is 1 + 0.2*value/100 of the character's Advanced
// Potion Making skill.
func (g Grimoire) AdvancedPotionMakingMod(c Character) float64 {
	value, cyclic := g.EffectiveSkill(c, SkillAdvancedPotionMaking)
	if cyclic {
		value = 0
	}
	return 1 + 0.2*float64(value)/100
}

func clampSkill(v int) int {
	return max(0, min(MaxSkillValue, v))
}
