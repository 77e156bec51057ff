package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.SaveSeries(ctx, "r1", []*timeseries.Series{timeseries.FromValues("x", []float64{1})})
	assert.ErrorIs(t, err, ErrNotFound, "series need their run first")

	assets := []string{"A1"}
	require.NoError(t, m.SaveRun(ctx, Run{ID: "r1", Index: 1, Seed: 8, Ticks: 2, Assets: assets}))
	require.NoError(t, m.SaveRun(ctx, Run{ID: "r0", Index: 0, Seed: 7, Ticks: 2}))
	assets[0] = "changed"

	s := timeseries.FromValues("A1/log-price", []float64{4.6, 4.7, 4.65})
	require.NoError(t, m.SaveSeries(ctx, "r1", []*timeseries.Series{s}))
	s.Append(1)

	got, err := m.GetSeries(ctx, "r1", "A1/log-price")
	require.NoError(t, err)
	assert.Equal(t, []float64{4.6, 4.7, 4.65}, got)

	run, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, run.Assets)

	runs, err := m.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r0", runs[0].ID)

	_, err = m.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetSeries(ctx, "r1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, m.SaveRun(ctx, Run{}))
}

func TestSaveResult(t *testing.T) {
	cfg := config.Default()
	cfg.Ticks = 20
	cfg.Trend.Count, cfg.Value.Count, cfg.LongShort.Count = 1, 1, 1
	require.NoError(t, cfg.Validate())
	run, err := simulation.NewRun(cfg, 0, nil)
	require.NoError(t, err)
	res, err := run.Execute(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, SaveResult(ctx, m, res))

	stored, err := m.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Seed, stored.Seed)
	assert.Equal(t, res.Assets, stored.Assets)
	for _, name := range res.Names() {
		values, err := m.GetSeries(ctx, res.RunID, name)
		require.NoError(t, err)
		s, _ := res.Series(name)
		assert.Equal(t, s.Values(), values, name)
	}
}
