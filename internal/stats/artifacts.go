package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"alembic/internal/model"
	"alembic/internal/optimizer"
)

const (
	runIndexFile = "run_index.json"

	runFile      = "run.json"
	historyFile  = "history.csv"
	frontFile    = "front.json"
	frontCSVFile = "front.csv"
	summaryFile  = "summary.json"
)

type RunArtifacts struct {
	Run     model.RunRecord
	History []HistoryEntry
	Front   optimizer.Snapshot
}

type RunIndexEntry struct {
	RunID               string    `json:"run_id"`
	Grimoire            string    `json:"grimoire"`
	Character           string    `json:"character"`
	Effects             []string  `json:"effects"`
	PopulationSize      int       `json:"population_size"`
	Generations         int       `json:"generations"`
	Seed                int64     `json:"seed"`
	Status              string    `json:"status"`
	FinalBestConstraint float64   `json:"final_best_constraint"`
	FinalBestFitness    []float64 `json:"final_best_fitness,omitempty"`
	CreatedAtUTC        string    `json:"created_at_utc"`
}

// WriteRunArtifacts writes the run record, its generation history, the final
// front and a summary into baseDir/<run id>.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Run.ID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := WriteHistory(filepath.Join(runDir, historyFile), artifacts.History); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, frontFile), artifacts.Front); err != nil {
		return "", err
	}
	if err := WriteFrontCSV(filepath.Join(runDir, frontCSVFile), artifacts.Front); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), Summarize(artifacts.History)); err != nil {
		return "", err
	}
	return runDir, nil
}

// IndexEntry derives the run index line for a finished run.
func IndexEntry(artifacts RunArtifacts) RunIndexEntry {
	run := artifacts.Run
	entry := RunIndexEntry{
		RunID:          run.ID,
		Grimoire:       run.Grimoire,
		Character:      run.Config.Character,
		Effects:        append([]string(nil), run.Config.Effects...),
		PopulationSize: run.Config.PopulationSize,
		Generations:    run.Generation,
		Seed:           run.Config.Seed,
		Status:         string(run.Status),
		CreatedAtUTC:   run.StartedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"),
	}
	if best, ok := artifacts.Front.Best(); ok {
		entry.FinalBestConstraint = best.Constraint
		entry.FinalBestFitness = append([]float64(nil), best.Fitness...)
	}
	return entry
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Later appends win ties.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory written by WriteRunArtifacts into
// outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{runFile, historyFile, frontFile, frontCSVFile, summaryFile}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadFront(baseDir, runID string) (optimizer.Snapshot, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, frontFile))
	if err != nil {
		if os.IsNotExist(err) {
			return optimizer.Snapshot{}, false, nil
		}
		return optimizer.Snapshot{}, false, err
	}

	var front optimizer.Snapshot
	if err := json.Unmarshal(data, &front); err != nil {
		return optimizer.Snapshot{}, false, err
	}
	return front, true, nil
}

func ReadRunHistory(baseDir, runID string) ([]HistoryEntry, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, historyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	history, err := ReadHistory(file)
	if err != nil {
		return nil, false, err
	}
	return history, true, nil
}

// WriteSnapshotJSON writes s indented, one trailing newline.
func WriteSnapshotJSON(w io.Writer, s optimizer.Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func WriteFrontCSV(path string, s optimizer.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteSnapshotCSV(file, s); err != nil {
		return err
	}
	return file.Sync()
}

// WriteSnapshotCSV writes one row per individual: rank, crowding, constraint,
// one column per objective and the genome as name:amount pairs.
func WriteSnapshotCSV(w io.Writer, s optimizer.Snapshot) error {
	objectives := 0
	for _, ind := range s.Individuals {
		objectives = max(objectives, len(ind.Fitness))
	}

	writer := csv.NewWriter(w)
	header := []string{"rank", "crowding", "constraint"}
	for i := 0; i < objectives; i++ {
		header = append(header, "fitness_"+strconv.Itoa(i))
	}
	header = append(header, "genome")
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, ind := range s.Individuals {
		row := []string{
			strconv.FormatUint(uint64(ind.Rank), 10),
			ind.Crowding.String(),
			formatFloat(ind.Constraint),
		}
		for i := 0; i < objectives; i++ {
			if i < len(ind.Fitness) {
				row = append(row, formatFloat(ind.Fitness[i]))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, FormatGenome(s, ind.Genome))
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatGenome renders a genome as "name:amount" pairs joined by ';'.
func FormatGenome(s optimizer.Snapshot, genome optimizer.Genome) string {
	parts := make([]string, 0, len(genome))
	for _, gene := range genome {
		parts = append(parts, s.IngredientName(gene.Ingredient)+":"+strconv.FormatUint(gene.Amount, 10))
	}
	return strings.Join(parts, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
