package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPortfolioValidation(t *testing.T) {
	tests := []struct {
		name   string
		owner  string
		assets []string
	}{
		{name: "empty owner", owner: "", assets: []string{"A1"}},
		{name: "no assets", owner: "trend-0", assets: nil},
		{name: "empty asset", owner: "trend-0", assets: []string{"A1", ""}},
		{name: "duplicate asset", owner: "trend-0", assets: []string{"A1", "A1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPortfolio(tt.owner, tt.assets, 100)
			assert.Error(t, err)
		})
	}
}

func TestPortfolioTargetsAreAdditive(t *testing.T) {
	p, err := NewPortfolio("ls-0", []string{"A1", "A2", "A3"}, 0)
	require.NoError(t, err)

	// Two spreads share leg A1 in the same tick.
	require.NoError(t, p.AddTarget("A1", 0, -10))
	require.NoError(t, p.AddTarget("A2", 0, 10))
	require.NoError(t, p.AddTarget("A1", 0, -5))
	require.NoError(t, p.AddTarget("A3", 0, 5))

	v, ok, err := p.TargetAt("A1", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -15.0, v)

	_, ok, err = p.TargetAt("A1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.TargetAt("XX", 0)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestPortfolioFinalizeOncePerTick(t *testing.T) {
	p, err := NewPortfolio("trend-0", []string{"A1"}, 0)
	require.NoError(t, err)

	require.NoError(t, p.Finalize("A1", 0, 0))
	require.NoError(t, p.Finalize("A1", 1, 12))
	assert.ErrorIs(t, p.Finalize("A1", 1, 13), ErrAlreadyFinalized)

	h, err := p.Holding("A1", 1)
	require.NoError(t, err)
	assert.Equal(t, 12.0, h)

	h, err = p.Holding("A1", -1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, h)

	h, err = p.Holding("A1", 7)
	require.NoError(t, err)
	assert.Equal(t, 12.0, h, "unfinalized ticks carry the last holding")
}

func TestPortfolioWealth(t *testing.T) {
	p, err := NewPortfolio("value-0", []string{"A1", "A2"}, 1000)
	require.NoError(t, err)
	prices := map[string]float64{"A1": 10, "A2": 20}
	price := func(a string) float64 { return prices[a] }

	require.NoError(t, p.Finalize("A1", 0, 0))
	require.NoError(t, p.Finalize("A2", 0, 0))
	require.NoError(t, p.RecordWealth(0, price))

	require.NoError(t, p.Finalize("A1", 1, 5))
	require.NoError(t, p.Finalize("A2", 1, 2))
	p.AdjustCash(-90)
	prices["A1"] = 12
	require.NoError(t, p.RecordWealth(1, price))

	w, err := p.Wealth(1)
	require.NoError(t, err)
	assert.InDelta(t, 910+5*12+2*20, w, 1e-12)
	assert.InDelta(t, 10.0, p.WealthChange(1), 1e-12)
	assert.Equal(t, 0.0, p.WealthChange(0))
	assert.Equal(t, 0.0, p.WealthChange(5))
	assert.Equal(t, 910.0, p.Cash())
}

func TestPortfolioOrdersPadWithZeros(t *testing.T) {
	p, err := NewPortfolio("trend-0", []string{"A1"}, 0)
	require.NoError(t, err)

	require.NoError(t, p.AddOrder("A1", 2, 4))
	orders, err := p.Orders("A1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 4}, orders.Values())
}
