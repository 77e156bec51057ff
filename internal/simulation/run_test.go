package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Ticks = 150
	cfg.Trend.Count = 3
	cfg.Value.Count = 3
	cfg.LongShort.Count = 2
	return cfg
}

func execute(t *testing.T, cfg config.Config, index int) *Result {
	t.Helper()
	require.NoError(t, cfg.Validate())
	run, err := NewRun(cfg, index, nil)
	require.NoError(t, err)
	res, err := run.Execute(context.Background())
	require.NoError(t, err)
	return res
}

func series(t *testing.T, res *Result, name string) []float64 {
	t.Helper()
	s, ok := res.Series(name)
	require.True(t, ok, "missing series %s", name)
	return s.Values()
}

func TestRunProducesFullLengthSeries(t *testing.T) {
	cfg := smallConfig()
	res := execute(t, cfg, 0)

	assert.Equal(t, []string{"A1", "A2"}, res.Assets)
	assert.Equal(t, cfg.Seed, res.Seed)
	assert.NotEmpty(t, res.RunID)
	for _, s := range res.All() {
		assert.Equal(t, cfg.Ticks+1, s.Len(), s.Name())
	}
	for _, name := range []string{
		"A1/log-price", "A1/log-reference", "A2/total-orders",
		"A1/trend/orders", "A1/value/net-position", "A2/long-short/volume", "A2/trend/trades",
		"trend/paper-pnl", "value/realized-pnl", "long-short/var", "trend/var-scale",
	} {
		_, ok := res.Series(name)
		assert.True(t, ok, name)
	}
	assert.Len(t, res.Names(), 2*(4+3*4)+3*4)
}

func TestRunIsReproducible(t *testing.T) {
	cfg := smallConfig()
	a := execute(t, cfg, 0)
	b := execute(t, cfg, 0)
	c := execute(t, cfg, 1)

	assert.Equal(t, series(t, a, "A1/log-price"), series(t, b, "A1/log-price"))
	assert.Equal(t, series(t, a, "trend/paper-pnl"), series(t, b, "trend/paper-pnl"))
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotEqual(t, series(t, a, "A1/log-price"), series(t, c, "A1/log-price"))
	assert.Equal(t, cfg.Seed+1, c.Seed)
}

func TestRunKeepsCashNonNegativeWithoutBorrowing(t *testing.T) {
	cfg := smallConfig()
	cfg.Ticks = 300
	run, err := NewRun(cfg, 0, nil)
	require.NoError(t, err)
	_, err = run.Execute(context.Background())
	require.NoError(t, err)

	for _, k := range strategy.Kinds {
		for _, ag := range run.Engine.Agents(k) {
			assert.GreaterOrEqual(t, ag.Portfolio().Cash(), -1e-6, ag.ID())
			for _, asset := range run.Market.Assets() {
				h, err := ag.Portfolio().Holding(asset, cfg.Ticks)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, h, 0.0, "%s holds %v of %s", ag.ID(), h, asset)
			}
		}
	}
	assert.Len(t, run.Engine.Agents(strategy.KindTrend), 3)
	assert.Len(t, run.Engine.Agents(strategy.KindLongShort), 2)
}

func TestRunWithEquationModelAndVaR(t *testing.T) {
	cfg := smallConfig()
	cfg.LongShort.Model = "equation"
	cfg.ShortSelling = true
	cfg.VaR.Enabled = true
	cfg.VaR.Window = 20
	cfg.VaR.Limit = 500
	res := execute(t, cfg, 0)

	for _, k := range strategy.Kinds {
		for _, v := range series(t, res, k.String()+"/var") {
			assert.GreaterOrEqual(t, v, 0.0)
		}
		for _, s := range series(t, res, k.String()+"/var-scale") {
			assert.True(t, s > 0 && s <= 1, "scale %v", s)
		}
	}
	assert.Zero(t, res.Entries[strategy.KindLongShort], "the equation model keeps no state machine")
}

func TestRunCountsEntriesPerClass(t *testing.T) {
	cfg := smallConfig()
	run, err := NewRun(cfg, 0, nil)
	require.NoError(t, err)
	res, err := run.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Entries, len(strategy.Kinds))
	for _, k := range strategy.Kinds {
		want := 0
		for _, ag := range run.Engine.Agents(k) {
			for _, s := range ag.Strategies() {
				switch st := s.(type) {
				case *strategy.Trend:
					want += st.StateMachine().EntryCount()
				case *strategy.Value:
					want += st.StateMachine().EntryCount()
				case *strategy.Pairs:
					want += st.StateMachine().EntryCount()
				}
			}
		}
		assert.Equal(t, want, res.Entries[k], k.String())
	}
}

func TestCancelledRunReturnsNoResult(t *testing.T) {
	run, err := NewRun(smallConfig(), 0, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := run.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunAll(t *testing.T) {
	cfg := smallConfig()
	cfg.Ticks = 60
	cfg.Runs = 3
	cfg.Parallelism = 2

	results, err := RunAll(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, cfg.Seed+uint64(i), res.Seed)
	}
	assert.Equal(t, series(t, execute(t, cfg, 1), "A2/log-price"), series(t, results[1], "A2/log-price"))
}

func TestRunAllCancelled(t *testing.T) {
	cfg := smallConfig()
	cfg.Runs = 2
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunAll(ctx, cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
