// Package optimizer binds the genetic kernel to the potion model: it turns a
// grimoire and a run configuration into a population of ingredient genomes,
// advances it generation by generation and emits sorted snapshots.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"alembic/internal/expr"
	"alembic/internal/genetic"
	"alembic/internal/pareto"
	"alembic/internal/potion"
)

var (
	ErrBadConfig         = errors.New("bad optimizer configuration")
	ErrCharacterNotFound = fmt.Errorf("%w: character not found", ErrBadConfig)
	ErrInvalidIngredient = errors.New("invalid ingredient")
	ErrEmitFailed        = errors.New("snapshot emission failed")
)

// EmitFunc receives every OutputEvery-th snapshot. A returned error stops the
// run with ErrEmitFailed.
type EmitFunc func(ctx context.Context, snapshot Snapshot) error

type Option func(*Optimizer)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *Optimizer) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// withFitness wraps the potion fitness before the engine is built.
func withFitness(wrap func(genetic.FitnessFunc[Genome]) genetic.FitnessFunc[Genome]) Option {
	return func(o *Optimizer) {
		o.wrapFitness = wrap
	}
}

type Optimizer struct {
	cfg         Config
	grimoire    *potion.OptimizedGrimoire
	engine      *genetic.Engine[Genome, pareto.Advantage]
	rng         *rand.Rand
	logger      *slog.Logger
	observer    Observer
	wrapFitness func(genetic.FitnessFunc[Genome]) genetic.FitnessFunc[Genome]
	stopped     atomic.Bool
}

// New applies the configured updates to grimoire, resolves the character,
// filters and indexes the ingredients, compiles the effect expressions and
// samples the initial population. Every configuration problem is reported
// here, before the first generation.
func New(grimoire potion.Grimoire, cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	updated, err := cfg.Grimoire.Apply(grimoire)
	if err != nil {
		return nil, fmt.Errorf("%w: apply grimoire updates: %w", ErrBadConfig, err)
	}
	character, ok := updated.Characters[cfg.Character]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCharacterNotFound, cfg.Character)
	}

	filter, err := compileFilter(cfg.IncludeIngredients)
	if err != nil {
		return nil, err
	}
	objectives, err := compileObjectives(cfg.Effects)
	if err != nil {
		return nil, err
	}

	optimized, err := potion.Optimize(updated, character, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	optimized, err = restrict(optimized, cfg.Ingredients)
	if err != nil {
		return nil, err
	}
	if optimized.Len() == 0 {
		return nil, fmt.Errorf("%w: no ingredients left after filtering", ErrInvalidIngredient)
	}

	o := &Optimizer{
		cfg:      cfg,
		grimoire: optimized,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		logger:   slog.Default(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}

	var fitness genetic.FitnessFunc[Genome] = potionFitness{
		grimoire:          optimized,
		objectives:        objectives,
		volume:            cfg.Volume,
		unknownMultiplier: cfg.UnknownMultiplier,
	}
	if o.wrapFitness != nil {
		fitness = o.wrapFitness(fitness)
	}

	caps := genetic.Capabilities[Genome, pareto.Advantage]{
		Fitness:   fitness,
		Advantage: pareto.Assign,
		Mutator: Mutator{
			AmountGrowRatio: cfg.Mutate.AmountGrowRatio,
			MinAmountGrow:   cfg.Mutate.MinAmountGrow,
			NumMutationsAmt: cfg.Mutate.NumMutationsAmt,
			NumMutationsIng: cfg.Mutate.NumMutationsIng,
			IngredientCount: optimized.Len(),
		},
		Crossover: genetic.PPXCrossover[Genome, Gene, uint32]{
			NumChildren: cfg.NumChildren,
			Key:         geneKey,
		},
		Selector: genetic.TournamentSelector[Genome, pareto.Advantage]{
			NumMatings:     cfg.Select.NumMatings,
			NumParents:     cfg.Select.NumParents,
			TournamentSize: cfg.Select.TournamentSize,
			P:              cfg.Select.Probability,
			RemoveSelected: cfg.Select.RemoveSelected,
		},
		Reinserter: genetic.ElitistReinserter[Genome, pareto.Advantage]{},
	}

	initial := RandomPopulation(o.rng, cfg.PopulationSize, optimized.Len())
	o.engine, err = genetic.NewEngine(caps, initial)
	if err != nil {
		return nil, fmt.Errorf("build initial population: %w", err)
	}
	return o, nil
}

func compileFilter(src string) (potion.IngredientFilter, error) {
	if src == "" {
		return nil, nil
	}
	p, err := expr.Compile(src, expr.IngredientEnv{}, expr.Bool)
	if err != nil {
		return nil, fmt.Errorf("%w: include_ingredients: %w", ErrBadConfig, err)
	}
	return expr.IngredientFilter(p), nil
}

func compileObjectives(sources []string) ([]*expr.Program, error) {
	out := make([]*expr.Program, len(sources))
	for i, src := range sources {
		p, err := expr.Compile(src, expr.MixEnv{}, expr.Number)
		if err != nil {
			return nil, fmt.Errorf("%w: effect %d: %w", ErrBadConfig, i, err)
		}
		out[i] = p
	}
	return out, nil
}

// restrict keeps only the named ingredients, preserving index order. Every
// name must have survived filtering.
func restrict(grimoire *potion.OptimizedGrimoire, names []string) (*potion.OptimizedGrimoire, error) {
	if len(names) == 0 {
		return grimoire, nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := grimoire.IndexOf(name); !ok {
			return nil, fmt.Errorf("%w: %q is not available after filtering", ErrInvalidIngredient, name)
		}
		wanted[name] = struct{}{}
	}
	out := &potion.OptimizedGrimoire{
		AlvarinClade:            grimoire.AlvarinClade,
		AdvancedPotionMakingMod: grimoire.AdvancedPotionMakingMod,
	}
	for _, ingredient := range grimoire.Ingredients {
		if _, ok := wanted[ingredient.Name]; ok {
			out.Ingredients = append(out.Ingredients, ingredient)
		}
	}
	return out, nil
}

func (o *Optimizer) Config() Config {
	return o.cfg
}

// Grimoire is the optimized grimoire the population is evaluated against.
func (o *Optimizer) Grimoire() *potion.OptimizedGrimoire {
	return o.grimoire
}

func (o *Optimizer) Generation() int {
	return o.engine.Generation()
}

// Stop asks Run to return after the generation in progress. It is safe to
// call from any goroutine.
func (o *Optimizer) Stop() {
	o.stopped.Store(true)
}

// Run advances generations until the configured count is reached, Stop is
// called or ctx is done. Cancellation is observed between generations only.
// A Stop returns nil; a done context returns its error.
func (o *Optimizer) Run(ctx context.Context, emit EmitFunc) error {
	o.logger.Info("optimizer started",
		"seed", o.cfg.Seed,
		"population", o.cfg.PopulationSize,
		"ingredients", o.grimoire.Len(),
		"objectives", len(o.cfg.Effects),
		"generations", o.cfg.Generations,
	)
	for {
		if err := ctx.Err(); err != nil {
			o.logger.Info("optimizer cancelled", "generation", o.engine.Generation())
			return err
		}
		if o.stopped.Load() {
			o.logger.Info("optimizer stopped", "generation", o.engine.Generation())
			return nil
		}
		if o.cfg.Generations > 0 && o.engine.Generation() >= o.cfg.Generations {
			o.logger.Info("optimizer finished", "generation", o.engine.Generation())
			return nil
		}

		if err := o.step(); err != nil {
			return err
		}

		gen := o.engine.Generation()
		if gen%o.cfg.OutputEvery != 0 || emit == nil {
			continue
		}
		snapshot, err := o.Snapshot()
		if err != nil {
			return err
		}
		if err := emit(ctx, snapshot); err != nil {
			return fmt.Errorf("%w: generation %d: %w", ErrEmitFailed, gen, err)
		}
		o.logger.Debug("snapshot emitted", "generation", gen, "individuals", len(snapshot.Individuals))
	}
}

// step advances one generation. A failed step leaves the population as it
// was and is retried up to MaxRetries times; the retry draws fresh numbers
// from the same generator.
func (o *Optimizer) step() error {
	gen := o.engine.Generation()
	start := time.Now()

	var err error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		err = o.engine.Step(o.rng)
		if err == nil {
			return o.observe(gen+1, attempt, time.Since(start))
		}
		o.observer.ObserveFailure(gen, err)
		o.logger.Warn("generation failed", "generation", gen, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("generation %d failed after %d attempts: %w", gen, o.cfg.MaxRetries+1, err)
}

func (o *Optimizer) observe(gen, retries int, elapsed time.Duration) error {
	ranked, err := o.engine.Ranked()
	if err != nil {
		return err
	}
	stats := GenerationStats{
		Generation: gen,
		Retries:    retries,
		Duration:   elapsed,
	}
	if len(ranked) > 0 {
		stats.BestConstraint = ranked[0].Constraint
		stats.BestFitness = effectValues(ranked[0].Fitness)
	}
	for _, r := range ranked {
		if r.Advantage.Rank == 0 {
			stats.FrontSize++
		}
	}
	o.observer.ObserveGeneration(stats)
	return nil
}

// Snapshot returns the current population sorted best-first.
func (o *Optimizer) Snapshot() (Snapshot, error) {
	ranked, err := o.engine.Ranked()
	if err != nil {
		return Snapshot{}, err
	}
	individuals := make([]SnapshotIndividual, len(ranked))
	for i, r := range ranked {
		individuals[i] = SnapshotIndividual{
			Fitness:    effectValues(r.Fitness),
			Constraint: r.Constraint,
			Rank:       r.Advantage.Rank,
			Crowding:   Distance(r.Advantage.Crowding),
			Genome:     r.Genome.Clone(),
		}
	}
	return Snapshot{
		Generation:  o.engine.Generation(),
		Ingredients: o.grimoire.Names(),
		Individuals: individuals,
	}, nil
}

// effectValues undoes the negation applied to make objectives minimized.
func effectValues(objectives []float64) []float64 {
	out := make([]float64, len(objectives))
	for i, v := range objectives {
		out[i] = -v
	}
	return out
}
