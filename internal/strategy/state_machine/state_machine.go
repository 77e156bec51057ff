// Package state_machine tracks the flat/long/short state of a strategy instance.
package state_machine

// State represents the current state of a trading strategy
type State string

const (
	Flat        State = "flat"
	Long        State = "long"
	Short       State = "short"
	LongSpread  State = "long-spread"
	ShortSpread State = "short-spread"
)

// IsOpen reports whether the state carries a position.
func (s State) IsOpen() bool { return s != Flat && s != "" }

// Sign is +1 for long states, -1 for short states, 0 when flat.
func (s State) Sign() float64 {
	switch s {
	case Long, LongSpread:
		return 1
	case Short, ShortSpread:
		return -1
	default:
		return 0
	}
}

// StateTransition represents a transition from one state to another
type StateTransition struct {
	FromState State
	ToState   State
	Tick      int
	Position  float64
	Reason    string
}

// StateMachine manages the state transitions for a trading strategy
type StateMachine struct {
	currentState   State
	entryTick      int
	entries        int
	stateHistory   []StateTransition
	maxHistorySize int
}

// NewStateMachine creates a flat state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState:   Flat,
		entryTick:      -1,
		stateHistory:   make([]StateTransition, 0),
		maxHistorySize: 1000,
	}
}

// GetCurrentState returns the current state
func (sm *StateMachine) GetCurrentState() State {
	return sm.currentState
}

// TransitionTo changes the state at tick. Moving from flat to an open state counts as an entry.
func (sm *StateMachine) TransitionTo(newState State, tick int, pos float64, reason string) {
	oldState := sm.currentState
	if oldState == newState {
		return
	}

	sm.stateHistory = append(sm.stateHistory, StateTransition{
		FromState: oldState,
		ToState:   newState,
		Tick:      tick,
		Position:  pos,
		Reason:    reason,
	})
	if len(sm.stateHistory) > sm.maxHistorySize {
		sm.stateHistory = sm.stateHistory[1:]
	}

	if !oldState.IsOpen() && newState.IsOpen() {
		sm.entries++
		sm.entryTick = tick
	}
	sm.currentState = newState
}

// GetStateHistory returns the state transition history
func (sm *StateMachine) GetStateHistory() []StateTransition {
	out := make([]StateTransition, len(sm.stateHistory))
	copy(out, sm.stateHistory)
	return out
}

// GetLastTransition returns the last transition
func (sm *StateMachine) GetLastTransition() *StateTransition {
	if len(sm.stateHistory) == 0 {
		return nil
	}
	return &sm.stateHistory[len(sm.stateHistory)-1]
}

// EntryTick is the tick of the most recent entry, -1 if none.
func (sm *StateMachine) EntryTick() int { return sm.entryTick }

// EntryCount is the number of flat-to-open transitions so far.
func (sm *StateMachine) EntryCount() int { return sm.entries }

// IsInState checks if the state machine is in a specific state
func (sm *StateMachine) IsInState(state State) bool {
	return sm.currentState == state
}
