package optimizer

import (
	"fmt"
	"math/rand"

	"alembic/internal/potion"
)

// MaxGenomeLength caps the number of ingredient slots in a genome.
const MaxGenomeLength = 16

// initialAmountLimit bounds sampled starting amounts to [0, 10).
const initialAmountLimit = 10

// Gene is one ingredient slot. An amount of 0 keeps the slot but adds nothing
// to the mix.
type Gene struct {
	Ingredient uint32 `json:"ingredient"`
	Amount     uint64 `json:"amount"`
}

// Genome is a fixed-length list of genes with pairwise distinct ingredients.
type Genome []Gene

func (g Genome) Clone() Genome {
	return append(Genome(nil), g...)
}

func (g Genome) Has(ingredient uint32) bool {
	for _, gene := range g {
		if gene.Ingredient == ingredient {
			return true
		}
	}
	return false
}

// Mix builds the potion mix in gene order.
func (g Genome) Mix(grimoire *potion.OptimizedGrimoire) (potion.Mix, error) {
	entries := make([]potion.MixEntry, len(g))
	for i, gene := range g {
		entries[i] = potion.MixEntry{Index: gene.Ingredient, Amount: gene.Amount}
	}
	return potion.NewMix(grimoire, entries)
}

// Validate checks ingredient range and uniqueness.
func (g Genome) Validate(ingredients int) error {
	seen := make(map[uint32]struct{}, len(g))
	for i, gene := range g {
		if int(gene.Ingredient) >= ingredients {
			return fmt.Errorf("%w: gene %d references ingredient %d of %d", ErrInvalidIngredient, i, gene.Ingredient, ingredients)
		}
		if _, ok := seen[gene.Ingredient]; ok {
			return fmt.Errorf("%w: gene %d repeats ingredient %d", ErrInvalidIngredient, i, gene.Ingredient)
		}
		seen[gene.Ingredient] = struct{}{}
	}
	return nil
}

func geneKey(g Gene) uint32 {
	return g.Ingredient
}

func genomeLength(ingredients int) int {
	if ingredients < MaxGenomeLength {
		return ingredients
	}
	return MaxGenomeLength
}

// RandomGenome draws genomeLength(ingredients) distinct ingredients without
// replacement, each with an amount in [0, 10).
func RandomGenome(rng *rand.Rand, ingredients int) Genome {
	perm := rng.Perm(ingredients)[:genomeLength(ingredients)]
	genome := make(Genome, len(perm))
	for i, idx := range perm {
		genome[i] = Gene{
			Ingredient: uint32(idx),
			Amount:     uint64(rng.Intn(initialAmountLimit)),
		}
	}
	return genome
}

// RandomPopulation samples size independent genomes.
func RandomPopulation(rng *rand.Rand, size, ingredients int) []Genome {
	population := make([]Genome, size)
	for i := range population {
		population[i] = RandomGenome(rng, ingredients)
	}
	return population
}
