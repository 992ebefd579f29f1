package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"alembic/internal/config"
	"alembic/internal/potion"
	"alembic/internal/storage"
)

// app carries what every subcommand needs once the root command has read the
// environment.
type app struct {
	stdout io.Writer
	stderr io.Writer

	storeKind string
	dbPath    string

	env    config.Env
	logger *slog.Logger
	store  storage.Store
}

func (a *app) setup(ctx context.Context, env config.Env) error {
	logger, err := config.NewLogger(a.stderr, env.LogLevel, env.LogFormat)
	if err != nil {
		return err
	}
	store, err := storage.NewStore(env.Store, env.DBPath)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return fmt.Errorf("init store: %w", err)
	}

	a.env = env
	a.logger = logger
	a.store = store
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := storage.CloseIfSupported(a.store)
	a.store = nil
	return err
}

// loadGrimoire rebuilds a stored grimoire from its update script. An empty
// name is the empty grimoire.
func (a *app) loadGrimoire(ctx context.Context, name string) (potion.Grimoire, error) {
	if name == "" {
		return potion.NewGrimoire(), nil
	}
	record, ok, err := a.store.GetGrimoire(ctx, name)
	if err != nil {
		return potion.Grimoire{}, err
	}
	if !ok {
		return potion.Grimoire{}, fmt.Errorf("grimoire not found: %s", name)
	}
	g, err := record.Script.Apply(potion.NewGrimoire())
	if err != nil {
		return potion.Grimoire{}, fmt.Errorf("rebuild grimoire %s: %w", name, err)
	}
	return g, nil
}
