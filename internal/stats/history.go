package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"alembic/internal/optimizer"
)

// HistoryEntry is one row of a run's generation history.
type HistoryEntry struct {
	Generation     int       `json:"generation"`
	BestConstraint float64   `json:"best_constraint"`
	BestFitness    []float64 `json:"best_fitness"`
	FrontSize      int       `json:"front_size"`
	Retries        int       `json:"retries"`
	DurationMS     float64   `json:"duration_ms"`
}

// Recorder is an optimizer.Observer that keeps the generation history in
// memory.
type Recorder struct {
	mu       sync.Mutex
	entries  []HistoryEntry
	failures int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ObserveGeneration(stats optimizer.GenerationStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, HistoryEntry{
		Generation:     stats.Generation,
		BestConstraint: stats.BestConstraint,
		BestFitness:    append([]float64(nil), stats.BestFitness...),
		FrontSize:      stats.FrontSize,
		Retries:        stats.Retries,
		DurationMS:     float64(stats.Duration) / float64(time.Millisecond),
	})
}

func (r *Recorder) ObserveFailure(int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

// History returns a copy of the recorded entries.
func (r *Recorder) History() []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]HistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func WriteHistory(path string, history []HistoryEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteHistoryCSV(file, history); err != nil {
		return err
	}
	return file.Sync()
}

// WriteHistoryCSV writes generation, best_constraint, front_size, retries,
// duration_ms and one best_fitness_<i> column per objective.
func WriteHistoryCSV(w io.Writer, history []HistoryEntry) error {
	objectives := 0
	for _, entry := range history {
		objectives = max(objectives, len(entry.BestFitness))
	}

	writer := csv.NewWriter(w)
	header := []string{"generation", "best_constraint", "front_size", "retries", "duration_ms"}
	for i := 0; i < objectives; i++ {
		header = append(header, "best_fitness_"+strconv.Itoa(i))
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, entry := range history {
		row := []string{
			strconv.Itoa(entry.Generation),
			formatFloat(entry.BestConstraint),
			strconv.Itoa(entry.FrontSize),
			strconv.Itoa(entry.Retries),
			formatFloat(entry.DurationMS),
		}
		for i := 0; i < objectives; i++ {
			if i < len(entry.BestFitness) {
				row = append(row, formatFloat(entry.BestFitness[i]))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadHistory(r io.Reader) ([]HistoryEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []HistoryEntry{}, nil
		}
		return nil, err
	}
	if len(header) < 5 {
		return nil, fmt.Errorf("history header must have at least 5 columns")
	}

	history := make([]HistoryEntry, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("history row has %d columns, header has %d", len(record), len(header))
		}
		entry, err := parseHistoryRow(record)
		if err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, nil
}

func parseHistoryRow(record []string) (HistoryEntry, error) {
	var (
		entry HistoryEntry
		err   error
	)
	if entry.Generation, err = strconv.Atoi(record[0]); err != nil {
		return HistoryEntry{}, fmt.Errorf("parse generation: %w", err)
	}
	if entry.BestConstraint, err = strconv.ParseFloat(record[1], 64); err != nil {
		return HistoryEntry{}, fmt.Errorf("parse best_constraint: %w", err)
	}
	if entry.FrontSize, err = strconv.Atoi(record[2]); err != nil {
		return HistoryEntry{}, fmt.Errorf("parse front_size: %w", err)
	}
	if entry.Retries, err = strconv.Atoi(record[3]); err != nil {
		return HistoryEntry{}, fmt.Errorf("parse retries: %w", err)
	}
	if entry.DurationMS, err = strconv.ParseFloat(record[4], 64); err != nil {
		return HistoryEntry{}, fmt.Errorf("parse duration_ms: %w", err)
	}
	for _, field := range record[5:] {
		if field == "" {
			break
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return HistoryEntry{}, fmt.Errorf("parse best_fitness: %w", err)
		}
		entry.BestFitness = append(entry.BestFitness, v)
	}
	return entry, nil
}
