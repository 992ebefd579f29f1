package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alembic/internal/model"
	"alembic/internal/potion"
	"alembic/internal/stats"
)

const starterScript = `
- {op: add-skill, skill: Herbalism}
- {op: set-effectiveness, skill: Herbalism, value: 1}
- {op: add-ingredient, ingredient: Ashroot}
- {op: set-skill, ingredient: Ashroot, target: Herbalism}
- {op: set-modifier-term, ingredient: Ashroot, effect: dh, value: 2}
- {op: set-weight, ingredient: Ashroot, weight: true}
- {op: add-ingredient, ingredient: Bloodmoss}
- {op: set-modifier-term, ingredient: Bloodmoss, effect: dp, value: 1}
- {op: set-weight, ingredient: Bloodmoss, weight: true}
- {op: add-character, character: Mira}
- {op: set-skill-value, character: Mira, skill: Herbalism, level: 40}
`

const starterRun = `
seed: 3
generations: 6
base_grimoire: starter
character: Mira
population_size: 12
output_every: 2
volume: 4
effects: [dh, dp]
select:
  num_matings: 6
`

type cli struct {
	t       *testing.T
	dir     string
	environ map[string]string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{
		t:   t,
		dir: dir,
		environ: map[string]string{
			"ALEMBIC_STORE":         "sqlite",
			"ALEMBIC_DB_PATH":       filepath.Join(dir, "alembic.db"),
			"ALEMBIC_ARTIFACTS_DIR": filepath.Join(dir, "artifacts"),
			"ALEMBIC_LOG_LEVEL":     "error",
			"ALEMBIC_LOG_FORMAT":    "json",
		},
	}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr, c.environ)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (c *cli) writeFile(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		c.t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestOptimizeEndToEnd(t *testing.T) {
	c := newCLI(t)

	if out := c.mustRun("init"); !strings.Contains(out, "initialized store=sqlite") {
		t.Fatalf("unexpected init output: %q", out)
	}

	out := c.mustRun("grimoire", "apply", "starter", c.writeFile("starter.yaml", starterScript))
	if !strings.Contains(out, "ingredients=2") || !strings.Contains(out, "characters=1") {
		t.Fatalf("unexpected apply output: %q", out)
	}

	out = c.mustRun("grimoire", "show", "starter", "--json")
	var g potion.Grimoire
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("decode grimoire: %v", err)
	}
	if len(g.Ingredients) != 2 || g.Characters["Mira"].Skills["Herbalism"] != 40 {
		t.Fatalf("unexpected grimoire: %+v", g)
	}

	out = c.mustRun("optimize", c.writeFile("run.yaml", starterRun), "--run-id", "run-e2e")
	if !strings.Contains(out, "run_id=run-e2e status=completed generations=6") {
		t.Fatalf("unexpected optimize output: %q", out)
	}

	out = c.mustRun("runs", "list", "--json")
	var runs []model.RunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != model.RunCompleted || runs[0].Generation != 6 || runs[0].FinishedAt == nil {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	if out := c.mustRun("snapshot", "run-e2e", "--list"); out != "2\n4\n6\n" {
		t.Fatalf("unexpected snapshot generations: %q", out)
	}
	out = c.mustRun("snapshot", "run-e2e", "--generation", "4", "--format", "csv")
	if !strings.HasPrefix(out, "rank,crowding,constraint,fitness_0,fitness_1,genome\n") {
		t.Fatalf("unexpected csv snapshot: %q", out)
	}
	if lines := strings.Count(out, "\n"); lines != 13 {
		t.Fatalf("expected header plus 12 individuals, got %d lines", lines)
	}

	index, err := stats.ListRunIndex(c.environ["ALEMBIC_ARTIFACTS_DIR"])
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(index) != 1 || index[0].RunID != "run-e2e" || index[0].Generations != 6 {
		t.Fatalf("unexpected run index: %+v", index)
	}
	history, ok, err := stats.ReadRunHistory(c.environ["ALEMBIC_ARTIFACTS_DIR"], "run-e2e")
	if err != nil || !ok || len(history) != 6 {
		t.Fatalf("unexpected history: ok=%v err=%v len=%d", ok, err, len(history))
	}

	exportDir := filepath.Join(c.dir, "exports")
	c.mustRun("export", "run-e2e", "--out", exportDir)
	for _, file := range []string{"run.json", "history.csv", "front.json", "front.csv", "summary.json"} {
		if _, err := os.Stat(filepath.Join(exportDir, "run-e2e", file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}

	if out := c.mustRun("runs", "delete", "run-e2e"); !strings.Contains(out, "deleted run_id=run-e2e") {
		t.Fatalf("unexpected delete output: %q", out)
	}
	if out := c.mustRun("runs", "list"); !strings.Contains(out, "no runs found") {
		t.Fatalf("expected empty run list, got %q", out)
	}
}

func TestOptimizeIsDeterministicForSeed(t *testing.T) {
	c := newCLI(t)
	c.mustRun("grimoire", "apply", "starter", c.writeFile("starter.yaml", starterScript))
	runPath := c.writeFile("run.yaml", starterRun)

	c.mustRun("optimize", runPath, "--run-id", "a")
	c.mustRun("optimize", runPath, "--run-id", "b")

	first := c.mustRun("snapshot", "a")
	second := c.mustRun("snapshot", "b")
	if first != second {
		t.Fatalf("same seed produced different final snapshots:\n%s\n%s", first, second)
	}
}

func TestCommandErrors(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("grimoire", "show", "missing"); err == nil {
		t.Fatal("expected missing grimoire to fail")
	}
	if _, err := c.run("runs", "delete", "missing"); err == nil {
		t.Fatal("expected deleting a missing run to fail")
	}
	if _, err := c.run("snapshot", "missing"); err == nil {
		t.Fatal("expected missing snapshot to fail")
	}
	if _, err := c.run("optimize", c.writeFile("bad.yaml", "effects: [dh]\n")); err == nil {
		t.Fatal("expected run document without character to fail")
	}

	c.mustRun("grimoire", "apply", "starter", c.writeFile("starter.yaml", starterScript))
	unknownCharacter := strings.Replace(starterRun, "character: Mira", "character: Nobody", 1)
	if _, err := c.run("optimize", c.writeFile("nobody.yaml", unknownCharacter)); err == nil {
		t.Fatal("expected unknown character to fail")
	}
	broken := c.writeFile("broken.yaml", "- {op: set-weight, ingredient: Ghost, weight: true}\n")
	if _, err := c.run("grimoire", "apply", "starter", broken); err == nil {
		t.Fatal("expected script touching an unknown ingredient to fail")
	}

	c.environ["ALEMBIC_STORE"] = "postgres"
	if _, err := c.run("init"); err == nil {
		t.Fatal("expected unsupported store to fail")
	}
}
