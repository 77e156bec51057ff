package db

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconf "github.com/gitwitcho/var-agent-model-sub001/internal/db/conf"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

func TestPostgresRoundTrip(t *testing.T) {
	cfg, cleanup := dbconf.NewTestConfig(t)
	require.NotNil(t, cfg)
	defer cleanup()

	store, err := New(*cfg)
	require.NoError(t, err)
	ctx := context.Background()

	run := Run{
		ID:        uuid.NewString(),
		Index:     2,
		Seed:      math.MaxUint64,
		Ticks:     3,
		Assets:    []string{"A1", "A2"},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.SaveRun(ctx, run))
	series := []*timeseries.Series{
		timeseries.FromValues("A1/log-price", []float64{4.6, 4.61, 4.59, 4.6}),
		timeseries.FromValues("trend/paper-pnl", []float64{0, 0, 1.5, -2}),
	}
	require.NoError(t, store.SaveSeries(ctx, run.ID, series))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Seed, got.Seed)
	assert.Equal(t, run.Assets, got.Assets)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	values, err := store.GetSeries(ctx, run.ID, "trend/paper-pnl")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1.5, -2}, values)

	// Saving again replaces the points instead of violating the key.
	require.NoError(t, store.SaveSeries(ctx, run.ID, series[:1]))
	values, err = store.GetSeries(ctx, run.ID, "A1/log-price")
	require.NoError(t, err)
	assert.Len(t, values, 4)

	_, err = store.GetSeries(ctx, run.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetRun(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPostgresTransactionFromContext(t *testing.T) {
	cfg, cleanup := dbconf.NewTestConfig(t)
	require.NotNil(t, cfg)
	defer cleanup()

	store, err := New(*cfg)
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := store.GetDB().BeginTx(ctx, nil)
	require.NoError(t, err)
	id := uuid.NewString()
	require.NoError(t, store.SaveRun(WithTransaction(ctx, tx), Run{ID: id, Ticks: 1, Assets: []string{"A1"}, CreatedAt: time.Now()}))
	require.NoError(t, tx.Rollback())

	_, err = store.GetRun(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
