package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

func TestMovingAverageSequentialMatchesFull(t *testing.T) {
	s := timeseries.FromValues("p", []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7})
	ma := NewMovingAverage(4)

	for end := 3; end < s.Len(); end++ {
		got, err := ma.Update(s, end)
		require.NoError(t, err)
		want, err := FullMA(s, end, 4)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, "tick %d", end)
	}

	v, ok := ma.Value()
	assert.True(t, ok)
	assert.InDelta(t, (5+8+9+7)/4.0, v, 1e-12)
}

func TestMovingAverageGapFallsBackToFull(t *testing.T) {
	s := timeseries.FromValues("p", []float64{1, 2, 3, 4, 5, 6, 7, 8})
	ma := NewMovingAverage(3)

	_, err := ma.Update(s, 2)
	require.NoError(t, err)

	// Skipping from 2 to 5 would corrupt an incremental update.
	got, err := ma.Update(s, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-12)

	got, err = ma.Update(s, 6)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, got, 1e-12)
}

func TestMovingAverageResetAndForceFull(t *testing.T) {
	s := timeseries.FromValues("p", []float64{2, 4, 6, 8, 10})
	ma := NewMovingAverage(2)

	_, err := ma.Update(s, 1)
	require.NoError(t, err)
	ma.Reset()
	_, ok := ma.Value()
	assert.False(t, ok)

	ma.ForceFull(true)
	for end := 1; end < s.Len(); end++ {
		got, err := ma.Update(s, end)
		require.NoError(t, err)
		want, _ := FullMA(s, end, 2)
		assert.Equal(t, want, got, "forced recompute must equal the full form exactly")
	}
}

func TestMovingVarianceSequentialMatchesFull(t *testing.T) {
	s := timeseries.FromValues("p", []float64{100, 101, 99, 103, 98, 97, 104, 105, 99, 100})
	mv := NewMovingVariance(5)

	for end := 4; end < s.Len(); end++ {
		got, err := mv.Update(s, end)
		require.NoError(t, err)
		_, want, err := FullVariance(s, end, 5)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9, "tick %d", end)
	}
	_, last, _ := FullVariance(s, s.LastTick(), 5)
	assert.InDelta(t, StdDev(last), mv.StdDev(), 1e-9)
}

func TestMovingVarianceInsufficientHistory(t *testing.T) {
	s := timeseries.FromValues("p", []float64{1, 2})
	mv := NewMovingVariance(5)
	_, err := mv.Update(s, 1)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}
