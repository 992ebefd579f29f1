package storage

import (
	"context"
	"sort"
	"sync"

	"alembic/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	grimoires   map[string]model.GrimoireRecord
	runs        map[string]model.RunRecord
	snapshots   map[string]map[int]model.SnapshotRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.grimoires = make(map[string]model.GrimoireRecord)
	s.runs = make(map[string]model.RunRecord)
	s.snapshots = make(map[string]map[int]model.SnapshotRecord)
	return nil
}

func (s *MemoryStore) SaveGrimoire(_ context.Context, record model.GrimoireRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.grimoires[record.Name] = record
	return nil
}

func (s *MemoryStore) GetGrimoire(_ context.Context, name string) (model.GrimoireRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.grimoires[name]
	return record, ok, nil
}

func (s *MemoryStore) ListGrimoires(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.grimoires))
	for name := range s.grimoires {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns runs ordered by start time, then id.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	delete(s.snapshots, id)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, record model.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	byGeneration, ok := s.snapshots[record.RunID]
	if !ok {
		byGeneration = make(map[int]model.SnapshotRecord)
		s.snapshots[record.RunID] = byGeneration
	}
	byGeneration[record.Generation()] = record
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, runID string, generation int) (model.SnapshotRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.snapshots[runID][generation]
	return record, ok, nil
}

func (s *MemoryStore) LatestSnapshot(_ context.Context, runID string) (model.SnapshotRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := -1
	for generation := range s.snapshots[runID] {
		if generation > latest {
			latest = generation
		}
	}
	if latest < 0 {
		return model.SnapshotRecord{}, false, nil
	}
	return s.snapshots[runID][latest], true, nil
}

func (s *MemoryStore) ListSnapshotGenerations(_ context.Context, runID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	generations := make([]int, 0, len(s.snapshots[runID]))
	for generation := range s.snapshots[runID] {
		generations = append(generations, generation)
	}
	sort.Ints(generations)
	return generations, nil
}

func sortRuns(runs []model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
