package state_machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()
	assert.Equal(t, Flat, sm.GetCurrentState())
	assert.Nil(t, sm.GetLastTransition())
	assert.Equal(t, -1, sm.EntryTick())

	sm.TransitionTo(Long, 5, 12, "short MA crossed above long MA")
	assert.True(t, sm.IsInState(Long))
	assert.Equal(t, 5, sm.EntryTick())
	assert.Equal(t, 1, sm.EntryCount())

	// Same-state transitions are ignored.
	sm.TransitionTo(Long, 6, 14, "hold")
	assert.Len(t, sm.GetStateHistory(), 1)

	sm.TransitionTo(Flat, 9, 0, "breakout exit")
	sm.TransitionTo(Short, 12, -12, "short MA crossed below long MA")
	assert.Equal(t, 2, sm.EntryCount())
	assert.Equal(t, 12, sm.EntryTick())

	last := sm.GetLastTransition()
	require.NotNil(t, last)
	assert.Equal(t, Flat, last.FromState)
	assert.Equal(t, Short, last.ToState)

	sm.TransitionTo(Flat, 13, 0, "breakout exit")
	assert.Equal(t, Flat, sm.GetCurrentState())
	assert.Len(t, sm.GetStateHistory(), 4)
	assert.Equal(t, 12, sm.EntryTick(), "exits keep the last entry tick")
}

func TestStateSign(t *testing.T) {
	tests := []struct {
		state State
		sign  float64
		open  bool
	}{
		{Flat, 0, false},
		{Long, 1, true},
		{Short, -1, true},
		{LongSpread, 1, true},
		{ShortSpread, -1, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.sign, tt.state.Sign())
			assert.Equal(t, tt.open, tt.state.IsOpen())
		})
	}
}
