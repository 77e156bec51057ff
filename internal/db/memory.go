package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

type MemoryStorage struct {
	mu sync.RWMutex

	runs map[string]Run
	// series values keyed by run ID, then series name
	series map[string]map[string][]float64
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		runs:   make(map[string]Run),
		series: make(map[string]map[string][]float64),
	}
}

func (m *MemoryStorage) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("failed to save run: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run.Assets = append([]string(nil), run.Assets...)
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryStorage) SaveSeries(ctx context.Context, runID string, series []*timeseries.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return fmt.Errorf("failed to save series of run %s: %w", runID, ErrNotFound)
	}
	byName, ok := m.series[runID]
	if !ok {
		byName = make(map[string][]float64, len(series))
		m.series[runID] = byName
	}
	for _, s := range series {
		byName[s.Name()] = s.Values()
	}
	return nil
}

func (m *MemoryStorage) GetRun(ctx context.Context, runID string) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	run.Assets = append([]string(nil), run.Assets...)
	return run, nil
}

func (m *MemoryStorage) ListRuns(ctx context.Context) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (m *MemoryStorage) GetSeries(ctx context.Context, runID, name string) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values, ok := m.series[runID][name]
	if !ok {
		return nil, fmt.Errorf("series %s of run %s: %w", name, runID, ErrNotFound)
	}
	return append([]float64(nil), values...), nil
}
