// Package timeseries provides the tick-indexed numeric series every component of a run reads and writes.
package timeseries

import (
	"errors"
	"fmt"
)

var (
	ErrTickOutOfRange = errors.New("tick out of range")
	ErrNotOpen        = errors.New("tick is not the open entry")
)

// Series is an append-only sequence of values indexed by tick, contiguous from 0.
// The last entry is the open entry: it may still be accumulated into with Add.
type Series struct {
	name   string
	values []float64
}

func New(name string) *Series {
	return &Series{name: name, values: make([]float64, 0, 64)}
}

func NewWithCapacity(name string, capacity int) *Series {
	if capacity < 0 {
		capacity = 0
	}
	return &Series{name: name, values: make([]float64, 0, capacity)}
}

// FromValues copies values into a new series.
func FromValues(name string, values []float64) *Series {
	s := NewWithCapacity(name, len(values))
	s.values = append(s.values, values...)
	return s
}

func (s *Series) Name() string { return s.name }

func (s *Series) Len() int { return len(s.values) }

// LastTick returns the tick of the last entry, -1 when empty.
func (s *Series) LastTick() int { return len(s.values) - 1 }

func (s *Series) Append(v float64) {
	s.values = append(s.values, v)
}

// Get returns the value at tick t.
func (s *Series) Get(t int) (float64, error) {
	if t < 0 || t >= len(s.values) {
		return 0, fmt.Errorf("%s: get tick %d (len %d): %w", s.name, t, len(s.values), ErrTickOutOfRange)
	}
	return s.values[t], nil
}

// At is Get for callers that have already checked the bounds. It panics otherwise.
func (s *Series) At(t int) float64 {
	return s.values[t]
}

func (s *Series) Last() (float64, error) {
	if len(s.values) == 0 {
		return 0, fmt.Errorf("%s: last of empty series: %w", s.name, ErrTickOutOfRange)
	}
	return s.values[len(s.values)-1], nil
}

// Add accumulates v into the entry at tick t. t may be the open entry or the next tick,
// in which case a new entry holding v is appended.
func (s *Series) Add(t int, v float64) error {
	switch {
	case t == len(s.values):
		s.values = append(s.values, v)
	case t == len(s.values)-1:
		s.values[t] += v
	default:
		return fmt.Errorf("%s: add at tick %d (len %d): %w", s.name, t, len(s.values), ErrNotOpen)
	}
	return nil
}

// Set overwrites the open entry or appends the next one.
func (s *Series) Set(t int, v float64) error {
	switch {
	case t == len(s.values):
		s.values = append(s.values, v)
	case t == len(s.values)-1:
		s.values[t] = v
	default:
		return fmt.Errorf("%s: set at tick %d (len %d): %w", s.name, t, len(s.values), ErrNotOpen)
	}
	return nil
}

// PadTo repeats the last value (or v when empty) until the series holds tick t-1,
// so that the next Append lands on tick t.
func (s *Series) PadTo(t int, v float64) {
	for len(s.values) < t {
		fill := v
		if len(s.values) > 0 {
			fill = s.values[len(s.values)-1]
		}
		s.values = append(s.values, fill)
	}
}

// FillTo appends v until the series holds tick t-1.
func (s *Series) FillTo(t int, v float64) {
	for len(s.values) < t {
		s.values = append(s.values, v)
	}
}

// Window returns a copy of the w values ending at tick end (inclusive).
func (s *Series) Window(end, w int) ([]float64, error) {
	start := end - w + 1
	if w <= 0 || start < 0 || end >= len(s.values) {
		return nil, fmt.Errorf("%s: window end=%d w=%d (len %d): %w", s.name, end, w, len(s.values), ErrTickOutOfRange)
	}
	out := make([]float64, w)
	copy(out, s.values[start:end+1])
	return out, nil
}

// Values returns a copy of all entries.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}
