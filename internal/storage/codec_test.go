package storage

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"alembic/internal/model"
	"alembic/internal/potion"
)

func TestDecodeGrimoireFixture(t *testing.T) {
	record, err := DecodeGrimoire(readFixture(t, "grimoire_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if record.Name != "starter" || len(record.Script) != 8 {
		t.Fatalf("unexpected grimoire record: %+v", record)
	}

	g, err := record.Script.Apply(potion.NewGrimoire())
	if err != nil {
		t.Fatalf("apply fixture script: %v", err)
	}
	ashroot, ok := g.Ingredients["Ashroot"]
	if !ok || !ashroot.Weight || ashroot.Skill != "Herbalism" {
		t.Fatalf("unexpected ingredient: %+v", ashroot)
	}
	term := ashroot.Modifiers.Get(potion.DH).Term
	if !term.IsTheoretical() || term.Inner() != 0.5 {
		t.Fatalf("expected theoretical 0.5 dh term, got %v", term)
	}
	if g.Characters["Mira"].Skills["Herbalism"] != 40 {
		t.Fatalf("unexpected character: %+v", g.Characters["Mira"])
	}
}

func TestDecodeRunFixture(t *testing.T) {
	run, err := DecodeRun(readFixture(t, "run_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.Status != model.RunCompleted || run.Generation != 100 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.FinishedAt == nil || !run.FinishedAt.After(run.StartedAt) {
		t.Fatalf("expected finish time after start: %+v", run)
	}
	cfg := run.Config
	if cfg.Seed != 3 || cfg.Select.NumMatings != 10 || cfg.Mutate.MinAmountGrow != 1 || len(cfg.Effects) != 2 {
		t.Fatalf("unexpected run config: %+v", cfg)
	}
}

func TestDecodeSnapshotFixture(t *testing.T) {
	record, err := DecodeSnapshot(readFixture(t, "snapshot_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if record.Generation() != 10 || len(record.Snapshot.Individuals) != 2 {
		t.Fatalf("unexpected snapshot: %+v", record)
	}
	best := record.Snapshot.Individuals[0]
	if !math.IsInf(float64(best.Crowding), 1) {
		t.Fatalf("expected boundary crowding, got %v", best.Crowding)
	}
	if best.Genome[0].Ingredient != 0 || best.Genome[0].Amount != 12 {
		t.Fatalf("unexpected genome: %+v", best.Genome)
	}
	if record.Snapshot.IngredientName(1) != "Bloodmoss" {
		t.Fatalf("unexpected ingredient table: %v", record.Snapshot.Ingredients)
	}
}

func TestSnapshotFixtureRoundTrip(t *testing.T) {
	record, err := DecodeSnapshot(readFixture(t, "snapshot_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	data, err := EncodeSnapshot(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode again: %v", err)
	}
	if !reflect.DeepEqual(record, again) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", record, again)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	record := model.GrimoireRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		Name:            "future",
	}
	data, err := EncodeGrimoire(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeGrimoire(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}

	run, err := EncodeRun(model.RunRecord{ID: "unversioned"})
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	if _, err := DecodeRun(run); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for zero version, got %v", err)
	}

	if _, err := DecodeSnapshot([]byte(`{"schema_version": 1`)); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
