package storage

import (
	"context"
	"errors"

	"alembic/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// Store persists grimoires, optimization runs and their snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveGrimoire(ctx context.Context, record model.GrimoireRecord) error
	GetGrimoire(ctx context.Context, name string) (model.GrimoireRecord, bool, error)
	ListGrimoires(ctx context.Context) ([]string, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	SaveSnapshot(ctx context.Context, record model.SnapshotRecord) error
	GetSnapshot(ctx context.Context, runID string, generation int) (model.SnapshotRecord, bool, error)
	LatestSnapshot(ctx context.Context, runID string) (model.SnapshotRecord, bool, error)
	ListSnapshotGenerations(ctx context.Context, runID string) ([]int, error)
}
