package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"alembic/internal/model"
	"alembic/internal/optimizer"
	"alembic/internal/potion"
)

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveRun(context.Background(), model.RunRecord{ID: "r"})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

// exerciseStore runs the behaviour every Store backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	grimoire := model.GrimoireRecord{
		VersionedRecord: CurrentVersion(),
		Name:            "starter",
		Script: potion.Script{
			{Op: potion.OpAddIngredient, Ingredient: "Ashroot"},
			{Op: potion.OpSetWeight, Ingredient: "Ashroot", Weight: true},
		},
		UpdatedAt: base,
	}
	if err := store.SaveGrimoire(ctx, grimoire); err != nil {
		t.Fatalf("save grimoire: %v", err)
	}
	if err := store.SaveGrimoire(ctx, model.GrimoireRecord{VersionedRecord: CurrentVersion(), Name: "alpha", UpdatedAt: base}); err != nil {
		t.Fatalf("save grimoire: %v", err)
	}
	loaded, ok, err := store.GetGrimoire(ctx, "starter")
	if err != nil || !ok {
		t.Fatalf("get grimoire: ok=%v err=%v", ok, err)
	}
	if loaded.Name != "starter" || !reflect.DeepEqual(loaded.Script, grimoire.Script) {
		t.Fatalf("unexpected grimoire: %+v", loaded)
	}
	names, err := store.ListGrimoires(ctx)
	if err != nil {
		t.Fatalf("list grimoires: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "starter"}) {
		t.Fatalf("unexpected grimoire names: %v", names)
	}
	if _, ok, err := store.GetGrimoire(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing grimoire, ok=%v err=%v", ok, err)
	}

	later := model.RunRecord{VersionedRecord: CurrentVersion(), ID: "run-b", Grimoire: "starter", Status: model.RunRunning, StartedAt: base.Add(time.Minute)}
	earlier := model.RunRecord{VersionedRecord: CurrentVersion(), ID: "run-a", Grimoire: "starter", Status: model.RunRunning, StartedAt: base}
	for _, run := range []model.RunRecord{later, earlier} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}
	finished := base.Add(2 * time.Minute)
	earlier.Status = model.RunCompleted
	earlier.Generation = 20
	earlier.FinishedAt = &finished
	if err := store.SaveRun(ctx, earlier); err != nil {
		t.Fatalf("update run: %v", err)
	}
	run, ok, err := store.GetRun(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if run.Status != model.RunCompleted || run.Generation != 20 || run.FinishedAt == nil || !run.FinishedAt.Equal(finished) {
		t.Fatalf("unexpected run: %+v", run)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	for _, gen := range []int{20, 10} {
		record := model.SnapshotRecord{
			VersionedRecord: CurrentVersion(),
			RunID:           "run-a",
			Snapshot: optimizer.Snapshot{
				Generation:  gen,
				Ingredients: []string{"Ashroot"},
				Individuals: []optimizer.SnapshotIndividual{{
					Fitness:  []float64{float64(gen)},
					Genome:   optimizer.Genome{{Ingredient: 0, Amount: uint64(gen)}},
					Crowding: 1,
				}},
			},
		}
		if err := store.SaveSnapshot(ctx, record); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}
	}
	generations, err := store.ListSnapshotGenerations(ctx, "run-a")
	if err != nil {
		t.Fatalf("list generations: %v", err)
	}
	if !reflect.DeepEqual(generations, []int{10, 20}) {
		t.Fatalf("unexpected generations: %v", generations)
	}
	snap, ok, err := store.GetSnapshot(ctx, "run-a", 10)
	if err != nil || !ok {
		t.Fatalf("get snapshot: ok=%v err=%v", ok, err)
	}
	if snap.Snapshot.Individuals[0].Genome[0].Amount != 10 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	latest, ok, err := store.LatestSnapshot(ctx, "run-a")
	if err != nil || !ok || latest.Generation() != 20 {
		t.Fatalf("unexpected latest snapshot: gen=%d ok=%v err=%v", latest.Generation(), ok, err)
	}
	if _, ok, err := store.LatestSnapshot(ctx, "run-b"); ok || err != nil {
		t.Fatalf("expected no snapshot for run-b, ok=%v err=%v", ok, err)
	}

	if err := store.DeleteRun(ctx, "run-a"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "run-a"); ok {
		t.Fatal("expected run-a to be deleted")
	}
	generations, err = store.ListSnapshotGenerations(ctx, "run-a")
	if err != nil || len(generations) != 0 {
		t.Fatalf("expected snapshots to be deleted with the run: %v %v", generations, err)
	}
}
