package potion

import (
	"fmt"

	"alembic/internal/theory"
)

// Op names one grimoire update command.
type Op string

const (
	OpAddCharacter          Op = "add-character"
	OpAddSkill              Op = "add-skill"
	OpAddIngredient         Op = "add-ingredient"
	OpAddClade              Op = "add-clade"
	OpRemoveClade           Op = "remove-clade"
	OpSetSkillValue         Op = "set-skill-value"
	OpRemoveSkillValue      Op = "remove-skill-value"
	OpSetEffectiveness      Op = "set-effectiveness"
	OpSetParent             Op = "set-parent"
	OpSetParent2            Op = "set-parent-2"
	OpSetModifierTerm       Op = "set-modifier-term"
	OpSetModifierMultiplier Op = "set-modifier-multiplier"
	OpSetWeight             Op = "set-weight"
	OpSetSkill              Op = "set-skill"
	OpRemoveCharacter       Op = "remove-character"
	OpRemoveSkill           Op = "remove-skill"
	OpRemoveIngredient      Op = "remove-ingredient"
)

// Command is one serializable grimoire update. Only the fields relevant to
// Op are read.
type Command struct {
	Op         Op            `json:"op" yaml:"op"`
	Character  string        `json:"character,omitempty" yaml:"character,omitempty"`
	Skill      string        `json:"skill,omitempty" yaml:"skill,omitempty"`
	Ingredient string        `json:"ingredient,omitempty" yaml:"ingredient,omitempty"`
	Clade      string        `json:"clade,omitempty" yaml:"clade,omitempty"`
	Effect     string        `json:"effect,omitempty" yaml:"effect,omitempty"`
	Target     string        `json:"target,omitempty" yaml:"target,omitempty"`
	Value      *theory.Value `json:"value,omitempty" yaml:"value,omitempty"`
	Level      int           `json:"level,omitempty" yaml:"level,omitempty"`
	Weight     bool          `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Script is an ordered list of commands.
type Script []Command

// Apply runs the script against a copy of g and returns the result. g is left
// untouched when any command fails.
func (s Script) Apply(g Grimoire) (Grimoire, error) {
	out := g.Clone()
	for i, cmd := range s {
		if err := cmd.apply(&out); err != nil {
			return Grimoire{}, fmt.Errorf("command %d (%s): %w", i, cmd.Op, err)
		}
	}
	return out, nil
}

func (c Command) apply(g *Grimoire) error {
	switch c.Op {
	case OpAddCharacter:
		if _, ok := g.Characters[c.Character]; !ok {
			g.Characters[c.Character] = NewCharacter()
		}
		return nil
	case OpAddSkill:
		if _, ok := g.Skills[c.Skill]; !ok {
			g.Skills[c.Skill] = Skill{}
		}
		return nil
	case OpAddIngredient:
		if _, ok := g.Ingredients[c.Ingredient]; !ok {
			g.Ingredients[c.Ingredient] = Ingredient{}
		}
		return nil
	case OpAddClade, OpRemoveClade, OpSetSkillValue, OpRemoveSkillValue:
		return c.applyCharacter(g)
	case OpSetEffectiveness, OpSetParent, OpSetParent2:
		return c.applySkill(g)
	case OpSetModifierTerm, OpSetModifierMultiplier, OpSetWeight, OpSetSkill:
		return c.applyIngredient(g)
	case OpRemoveCharacter:
		if _, ok := g.Characters[c.Character]; !ok {
			return fmt.Errorf("%w: character %q", ErrUnknownEntity, c.Character)
		}
		delete(g.Characters, c.Character)
		return nil
	case OpRemoveSkill:
		if _, ok := g.Skills[c.Skill]; !ok {
			return fmt.Errorf("%w: skill %q", ErrUnknownEntity, c.Skill)
		}
		delete(g.Skills, c.Skill)
		return nil
	case OpRemoveIngredient:
		if _, ok := g.Ingredients[c.Ingredient]; !ok {
			return fmt.Errorf("%w: ingredient %q", ErrUnknownEntity, c.Ingredient)
		}
		delete(g.Ingredients, c.Ingredient)
		return nil
	default:
		return fmt.Errorf("unsupported op %q", c.Op)
	}
}

func (c Command) applyCharacter(g *Grimoire) error {
	character, ok := g.Characters[c.Character]
	if !ok {
		return fmt.Errorf("%w: character %q", ErrUnknownEntity, c.Character)
	}
	character = character.clone()
	switch c.Op {
	case OpAddClade:
		character.AddClade(c.Clade)
	case OpRemoveClade:
		character.RemoveClade(c.Clade)
	case OpSetSkillValue:
		if c.Level < 0 || c.Level > MaxSkillValue {
			return fmt.Errorf("%w: skill value %d outside [0,%d]", ErrInvalidValue, c.Level, MaxSkillValue)
		}
		character.Skills[c.Skill] = c.Level
	case OpRemoveSkillValue:
		delete(character.Skills, c.Skill)
	}
	g.Characters[c.Character] = character
	return nil
}

func (c Command) applySkill(g *Grimoire) error {
	skill, ok := g.Skills[c.Skill]
	if !ok {
		return fmt.Errorf("%w: skill %q", ErrUnknownEntity, c.Skill)
	}
	switch c.Op {
	case OpSetEffectiveness:
		value, err := c.finiteValue()
		if err != nil {
			return err
		}
		skill.Effectiveness = value
	case OpSetParent:
		skill.Parent = c.Target
	case OpSetParent2:
		skill.Parent2 = c.Target
	}
	g.Skills[c.Skill] = skill
	return nil
}

func (c Command) applyIngredient(g *Grimoire) error {
	ingredient, ok := g.Ingredients[c.Ingredient]
	if !ok {
		return fmt.Errorf("%w: ingredient %q", ErrUnknownEntity, c.Ingredient)
	}
	switch c.Op {
	case OpSetModifierTerm, OpSetModifierMultiplier:
		effect, err := ParseEffect(c.Effect)
		if err != nil {
			return err
		}
		value, err := c.finiteValue()
		if err != nil {
			return err
		}
		if c.Op == OpSetModifierTerm {
			ingredient.Modifiers[effect].Term = value
		} else {
			ingredient.Modifiers[effect].Multiplier = value
		}
	case OpSetWeight:
		ingredient.Weight = c.Weight
	case OpSetSkill:
		ingredient.Skill = c.Target
	}
	g.Ingredients[c.Ingredient] = ingredient
	return nil
}

func (c Command) finiteValue() (theory.Value, error) {
	if c.Value == nil {
		return theory.Value{}, fmt.Errorf("%w: %s requires a value", ErrInvalidValue, c.Op)
	}
	if !c.Value.Finite() {
		return theory.Value{}, fmt.Errorf("%w: %s value must be finite", ErrInvalidValue, c.Op)
	}
	return *c.Value, nil
}

// fieldKey identifies the (entity, field) a setter writes to. Commands that are
// not plain setters return ok=false and are never collapsed.
func (c Command) fieldKey() (key string, ok bool) {
	switch c.Op {
	case OpSetSkillValue, OpRemoveSkillValue:
		return "character-skill\x00" + c.Character + "\x00" + c.Skill, true
	case OpSetEffectiveness, OpSetParent, OpSetParent2:
		return string(c.Op) + "\x00" + c.Skill, true
	case OpSetModifierTerm, OpSetModifierMultiplier:
		return string(c.Op) + "\x00" + c.Ingredient + "\x00" + c.Effect, true
	case OpSetWeight, OpSetSkill:
		return string(c.Op) + "\x00" + c.Ingredient, true
	default:
		return "", false
	}
}

// Collapse drops every setter that is immediately followed by another setter
// on the same field of the same entity. Applying the collapsed script yields
// the same grimoire as the original.
func (s Script) Collapse() Script {
	out := make(Script, 0, len(s))
	for _, cmd := range s {
		if n := len(out); n > 0 {
			prevKey, prevOK := out[n-1].fieldKey()
			key, ok := cmd.fieldKey()
			if prevOK && ok && prevKey == key {
				out[n-1] = cmd
				continue
			}
		}
		out = append(out, cmd)
	}
	return out
}

// ScriptFor returns a script that rebuilds g from an empty grimoire.
func ScriptFor(g Grimoire) Script {
	var s Script
	for _, name := range g.SkillNames() {
		skill := g.Skills[name]
		s = append(s,
			Command{Op: OpAddSkill, Skill: name},
			Command{Op: OpSetEffectiveness, Skill: name, Value: valuePtr(skill.Effectiveness)},
		)
		if skill.Parent != "" {
			s = append(s, Command{Op: OpSetParent, Skill: name, Target: skill.Parent})
		}
		if skill.Parent2 != "" {
			s = append(s, Command{Op: OpSetParent2, Skill: name, Target: skill.Parent2})
		}
	}
	for _, name := range g.IngredientNames() {
		ingredient := g.Ingredients[name]
		s = append(s,
			Command{Op: OpAddIngredient, Ingredient: name},
			Command{Op: OpSetWeight, Ingredient: name, Weight: ingredient.Weight},
		)
		if ingredient.Skill != "" {
			s = append(s, Command{Op: OpSetSkill, Ingredient: name, Target: ingredient.Skill})
		}
		for _, e := range Effects() {
			modifier := ingredient.Modifiers[e]
			s = append(s,
				Command{Op: OpSetModifierTerm, Ingredient: name, Effect: e.String(), Value: valuePtr(modifier.Term)},
				Command{Op: OpSetModifierMultiplier, Ingredient: name, Effect: e.String(), Value: valuePtr(modifier.Multiplier)},
			)
		}
	}
	for _, name := range g.CharacterNames() {
		character := g.Characters[name]
		s = append(s, Command{Op: OpAddCharacter, Character: name})
		for _, clade := range character.Clades {
			s = append(s, Command{Op: OpAddClade, Character: name, Clade: clade})
		}
		for _, skill := range sortedKeys(character.Skills) {
			s = append(s, Command{Op: OpSetSkillValue, Character: name, Skill: skill, Level: character.Skills[skill]})
		}
	}
	return s
}

func valuePtr(v theory.Value) *theory.Value {
	return &v
}
