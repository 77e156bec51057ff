// Package db stores simulation results.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

var ErrNotFound = errors.New("not found")

// Run is the stored metadata of one simulation run.
type Run struct {
	ID        string
	Index     int
	Seed      uint64
	Ticks     int
	Assets    []string
	CreatedAt time.Time
}

// ResultStore is the interface for all result storage.
type ResultStore interface {
	SaveRun(ctx context.Context, run Run) error
	SaveSeries(ctx context.Context, runID string, series []*timeseries.Series) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	GetSeries(ctx context.Context, runID, name string) ([]float64, error)
}

// SaveResult stores the run metadata and every series of res.
func SaveResult(ctx context.Context, store ResultStore, res *simulation.Result) error {
	run := Run{
		ID:        res.RunID,
		Index:     res.Index,
		Seed:      res.Seed,
		Ticks:     res.Ticks,
		Assets:    res.Assets,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	return store.SaveSeries(ctx, res.RunID, res.All())
}
