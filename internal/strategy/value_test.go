package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  ValueParams
		wantMsg string
	}{
		{name: "valid", params: ValueParams{Asset: "A1", EntryThreshold: 0.1, ExitThreshold: 0.02, CapitalFactor: 1}},
		{name: "exit above entry", params: ValueParams{Asset: "A1", EntryThreshold: 0.1, ExitThreshold: 0.2, CapitalFactor: 1},
			wantMsg: "exitThreshold=0.2 must be < entryThreshold=0.1"},
		{name: "negative exit", params: ValueParams{Asset: "A1", EntryThreshold: 0.1, ExitThreshold: -1, CapitalFactor: 1},
			wantMsg: "exitThreshold=-1"},
		{name: "no asset", params: ValueParams{EntryThreshold: 0.1, CapitalFactor: 1}, wantMsg: "asset"},
		{name: "capital factor", params: ValueParams{Asset: "A1", EntryThreshold: 0.1}, wantMsg: "capFactor=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParam)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValueTrade(t *testing.T) {
	logPrice := []float64{0, 0, 0, 0, 0, 0, 0}
	logRef := []float64{0, 0.2, 0.3, 0.05, -0.3, -0.3, 0}

	tests := []struct {
		name   string
		update UpdateMode
		short  ShortSelling
		want   []float64
	}{
		{name: "constant with shorts", short: ShortSellingAllowed, want: []float64{0, 0, 2, 2, 0, -3, -3, 0}},
		{name: "no shorts", short: ShortSellingDisallowed, want: []float64{0, 0, 2, 2, 0, 0, 0, 0}},
		{name: "variable", update: UpdateVariable, short: ShortSellingAllowed, want: []float64{0, 0, 2, 3, 0, -3, -3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMarket().setLogs("A1", logPrice, logRef)
			book := newBook(t, "A1")
			s, err := NewValue("value-0", ValueParams{
				Asset:          "A1",
				EntryThreshold: 0.1,
				ExitThreshold:  0.06,
				CapitalFactor:  10,
				Update:         tt.update,
				ShortSelling:   tt.short,
			}, m, book)
			require.NoError(t, err)

			tradeRange(t, s, 0, 7)
			assert.InDeltaSlice(t, tt.want, s.Positions().Values(), 1e-12)

			orders, err := book.Orders("A1")
			require.NoError(t, err)
			assert.InDelta(t, tt.want[2], orders.At(2), 1e-12)
		})
	}
}

func TestValueExitsOnSignFlip(t *testing.T) {
	m := newFakeMarket().setLogs("A1", []float64{0, 0, 0}, []float64{0.2, -0.5, -0.5})
	s, err := NewValue("value-0", ValueParams{Asset: "A1", EntryThreshold: 0.1, ExitThreshold: 0.01, CapitalFactor: 1}, m, newBook(t, "A1"))
	require.NoError(t, err)

	tradeRange(t, s, 0, 3)
	assert.InDeltaSlice(t, []float64{0, 0.2, 0, -0.5}, s.Positions().Values(), 1e-12)
	assert.Equal(t, 2, s.StateMachine().EntryCount())
}
