package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"alembic/internal/model"
)

func openSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(path)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	store := openSQLite(t, filepath.Join(t.TempDir(), "alembic.db"))
	exerciseStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "alembic.db")

	first := NewSQLiteStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	run := model.RunRecord{VersionedRecord: CurrentVersion(), ID: "persisted", Status: model.RunStopped}
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := openSQLite(t, path)
	loaded, ok, err := second.GetRun(ctx, "persisted")
	if err != nil || !ok {
		t.Fatalf("get run after reopen: ok=%v err=%v", ok, err)
	}
	if loaded.Status != model.RunStopped {
		t.Fatalf("unexpected run after reopen: %+v", loaded)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "alembic.db"))
	if _, _, err := store.GetRun(context.Background(), "x"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected empty path to fail")
	}
}

func TestSQLiteStoreRejectsFutureRecords(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t, filepath.Join(t.TempDir(), "alembic.db"))
	future := model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "future",
	}
	if err := store.SaveRun(ctx, future); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if _, _, err := store.GetRun(ctx, "future"); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}
