package expr

import (
	"alembic/internal/potion"
)

// MixEnv is what objective expressions see: every effect of a mix, with
// theoretical values already scaled, and the mix volume.
type MixEnv struct {
	DH     float64 `expr:"dh"`
	DP     float64 `expr:"dp"`
	HoT    float64 `expr:"hot"`
	PoT    float64 `expr:"pot"`
	HL     float64 `expr:"hl"`
	PL     float64 `expr:"pl"`
	A      float64 `expr:"a"`
	Volume float64 `expr:"volume"`
}

func (e *MixEnv) effects() [potion.NumEffects]*float64 {
	return [...]*float64{&e.DH, &e.DP, &e.HoT, &e.PoT, &e.HL, &e.PL, &e.A}
}

// NewMixEnv binds every effect of mix, collapsing theoretical values with
// unknownMultiplier, and the mix volume.
func NewMixEnv(mix potion.Mix, unknownMultiplier float64) MixEnv {
	var env MixEnv
	scale := func(x float64) float64 { return x * unknownMultiplier }
	fields := env.effects()
	for e, v := range mix.Effects() {
		*fields[e] = v.KnownOr(scale)
	}
	env.Volume = mix.Volume()
	return env
}

// IngredientEnv is what ingredient filters see: the term of every effect,
// its multiplier prefixed with m, and w (1 for weighted ingredients).
type IngredientEnv struct {
	DH     float64 `expr:"dh"`
	DP     float64 `expr:"dp"`
	HoT    float64 `expr:"hot"`
	PoT    float64 `expr:"pot"`
	HL     float64 `expr:"hl"`
	PL     float64 `expr:"pl"`
	A      float64 `expr:"a"`
	MDH    float64 `expr:"mdh"`
	MDP    float64 `expr:"mdp"`
	MHoT   float64 `expr:"mhot"`
	MPoT   float64 `expr:"mpot"`
	MHL    float64 `expr:"mhl"`
	MPL    float64 `expr:"mpl"`
	MA     float64 `expr:"ma"`
	Weight float64 `expr:"w"`
}

func (e *IngredientEnv) modifiers() (terms, multipliers [potion.NumEffects]*float64) {
	return [...]*float64{&e.DH, &e.DP, &e.HoT, &e.PoT, &e.HL, &e.PL, &e.A},
		[...]*float64{&e.MDH, &e.MDP, &e.MHoT, &e.MPoT, &e.MHL, &e.MPL, &e.MA}
}

// NewIngredientEnv binds the raw modifiers of a single ingredient.
func NewIngredientEnv(ingredient potion.Ingredient) IngredientEnv {
	var env IngredientEnv
	terms, multipliers := env.modifiers()
	for _, e := range potion.Effects() {
		m := ingredient.Modifiers.Get(e)
		*terms[e] = m.Term.Inner()
		*multipliers[e] = m.Multiplier.Inner()
	}
	if ingredient.Weight {
		env.Weight = 1
	}
	return env
}

// IngredientFilter adapts a compiled boolean program to potion.Optimize.
func IngredientFilter(p *Program) potion.IngredientFilter {
	if p == nil {
		return nil
	}
	return func(_ string, ingredient potion.Ingredient) (bool, error) {
		return p.Truth(NewIngredientEnv(ingredient))
	}
}
