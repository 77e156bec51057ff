package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquationWeights(t *testing.T) {
	flat := []float64{0, 0, 0, 0, 0}

	tests := []struct {
		name      string
		ref       float64
		normalize bool
		short     ShortSelling
		want      float64
	}{
		{name: "value only, raw weights", ref: 0.1, want: 2},
		{name: "value only, normalized", ref: 0.1, normalize: true, want: 2.0 / 3},
		{name: "overvalued, shorts allowed", ref: -0.1, want: -2},
		{name: "overvalued, shorts clamped", ref: -0.1, short: ShortSellingDisallowed, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := []float64{tt.ref, tt.ref, tt.ref, tt.ref, tt.ref}
			m := newFakeMarket().setLogs("A1", flat, ref)
			s, err := NewEquation("ls-0", EquationParams{
				Assets:           []string{"A1"},
				MAShortTicks:     1,
				MALongTicks:      3,
				TrendWeight:      1,
				ValueWeight:      2,
				CapitalFactor:    10,
				NormalizeWeights: tt.normalize,
				ShortSelling:     tt.short,
			}, m, newBook(t, "A1"))
			require.NoError(t, err)

			tradeRange(t, s, 0, 4)
			pos := s.Positions("A1")
			for tick := 0; tick < 3; tick++ {
				assert.Equal(t, 0.0, pos.At(tick))
			}
			assert.InDelta(t, tt.want, pos.At(3), 1e-12)
			assert.InDelta(t, tt.want, pos.At(4), 1e-12)
		})
	}
}

func TestEquationTrendTerm(t *testing.T) {
	m := newFakeMarket().set("A1", []float64{1, 2, 3, 4, 5}).set("A2", []float64{5, 4, 3, 2, 1})
	book := newBook(t, "A1", "A2")
	s, err := NewEquation("ls-0", EquationParams{
		Assets:        []string{"A1", "A2"},
		MAShortTicks:  1,
		MALongTicks:   3,
		TrendWeight:   1,
		CapitalFactor: 10,
	}, m, book)
	require.NoError(t, err)

	tradeRange(t, s, 0, 4)
	assert.InDelta(t, 5.0, s.Positions("A1").At(3), 1e-12)  // (3-2)/2
	assert.InDelta(t, -2.5, s.Positions("A2").At(3), 1e-12) // (3-4)/4
	assert.InDelta(t, 10.0/3, s.Positions("A1").At(4), 1e-12)
	assert.Nil(t, s.Positions("A9"))

	orders, err := book.Orders("A1")
	require.NoError(t, err)
	assert.InDelta(t, 10.0/3-5, orders.At(4), 1e-12)
}

func TestEquationParamsValidate(t *testing.T) {
	base := EquationParams{Assets: []string{"A1"}, MAShortTicks: 1, MALongTicks: 3, TrendWeight: 1, CapitalFactor: 1}

	p := base
	p.Assets = []string{"A1", "A1"}
	assert.ErrorIs(t, p.Validate(), ErrInvalidParam)

	p = base
	p.TrendWeight, p.ValueWeight, p.NormalizeWeights = 0, 0, true
	assert.ErrorIs(t, p.Validate(), ErrInvalidParam)

	p = base
	p.ValueWeight = math.Inf(-1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidParam)

	p = base
	p.MALongTicks = 1
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maShortTicks=1 must be < maLongTicks=1")

	assert.NoError(t, base.Validate())
}
