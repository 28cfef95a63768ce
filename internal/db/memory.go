package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

// MemoryStore keeps run history in process memory, bounded to capacity runs.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[uuid.UUID]pipeline.Result
	order    []uuid.UUID // insertion order, oldest first
	capacity int
}

// NewMemoryStore creates a store that keeps at most capacity runs;
// zero or less keeps MaxListLimit runs.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = MaxListLimit
	}
	return &MemoryStore{
		runs:     make(map[uuid.UUID]pipeline.Result),
		capacity: capacity,
	}
}

// SaveRun stores a copy of result, evicting the oldest run when full.
func (m *MemoryStore) SaveRun(_ context.Context, result *pipeline.Result) error {
	cp := *result
	cp.Statuses = result.Statuses.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[cp.ID]; !exists {
		m.order = append(m.order, cp.ID)
		if len(m.order) > m.capacity {
			delete(m.runs, m.order[0])
			m.order = m.order[1:]
		}
	}
	m.runs[cp.ID] = cp
	return nil
}

// GetRun returns a copy of the run, or nil when unknown.
func (m *MemoryStore) GetRun(_ context.Context, runID uuid.UUID) (*pipeline.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	result.Statuses = result.Statuses.Clone()
	return &result, nil
}

// ListRuns returns up to limit runs ordered by start time, newest first.
func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]pipeline.Result, error) {
	m.mu.RLock()
	runs := make([]pipeline.Result, 0, len(m.runs))
	for _, r := range m.runs {
		r.Statuses = r.Statuses.Clone()
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if n := normalizeLimit(limit); len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}
