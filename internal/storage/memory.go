package storage

import (
	"context"
	"sort"
	"sync"

	"cupart/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.Run
	validation  map[string][]model.ValidationRecord
	policies    map[string]model.PolicyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.Run)
	s.validation = make(map[string][]model.ValidationRecord)
	s.policies = make(map[string]model.PolicyRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns runs newest first.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveValidationHistory(_ context.Context, runID string, history []model.ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.ValidationRecord, len(history))
	for i, record := range history {
		copied[i] = copyValidationRecord(record)
	}
	s.validation[runID] = copied
	return nil
}

func (s *MemoryStore) GetValidationHistory(_ context.Context, runID string) ([]model.ValidationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.validation[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.ValidationRecord, len(history))
	for i, record := range history {
		copied[i] = copyValidationRecord(record)
	}
	return copied, true, nil
}

func (s *MemoryStore) SaveBestPolicy(_ context.Context, record model.PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[policyKey(record.RunID, record.Class)] = record
	return nil
}

func (s *MemoryStore) GetBestPolicy(_ context.Context, runID, class string) (model.PolicyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.policies[policyKey(runID, class)]
	return record, ok, nil
}

func copyValidationRecord(record model.ValidationRecord) model.ValidationRecord {
	record.Correct = append([]uint64(nil), record.Correct...)
	record.Totals = append([]uint64(nil), record.Totals...)
	return record
}
