// Package risk measures historical value-at-risk on wealth series and derives position limits from it.
package risk

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

var ErrInvalidLimit = errors.New("invalid VaR limit")

// HistoricalVaR returns the loss not exceeded with the given confidence among the observed
// changes, as a positive number. Gains only give 0.
func HistoricalVaR(changes []float64, confidence float64) float64 {
	if len(changes) == 0 {
		return 0
	}
	losses := make([]float64, len(changes))
	for i, c := range changes {
		losses[i] = -c
	}
	slices.Sort(losses)
	idx := int(math.Ceil(confidence*float64(len(losses)))) - 1
	idx = min(max(idx, 0), len(losses)-1)
	return math.Max(0, losses[idx])
}

// Changes returns the window-1 first differences of s ending at tick end.
func Changes(s *timeseries.Series, end, window int) ([]float64, error) {
	values, err := s.Window(end, window)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, values[i]-values[i-1])
	}
	return out, nil
}

// Limit caps an agent's VaR at Max by scaling its targets down. Max == 0 only measures.
type Limit struct {
	Confidence float64
	Window     int
	Max        float64
}

func (l Limit) Validate() error {
	if !(l.Confidence > 0 && l.Confidence < 1) {
		return fmt.Errorf("confidence=%v must be in (0, 1): %w", l.Confidence, ErrInvalidLimit)
	}
	if l.Window < 2 {
		return fmt.Errorf("window=%d must be >= 2: %w", l.Window, ErrInvalidLimit)
	}
	if l.Max < 0 {
		return fmt.Errorf("max=%v must be >= 0: %w", l.Max, ErrInvalidLimit)
	}
	return nil
}

// Measure returns the VaR of the wealth changes in the window ending at tick end. Before a
// full window is available it uses what there is.
func (l Limit) Measure(wealth *timeseries.Series, end int) float64 {
	if end < 1 || end >= wealth.Len() {
		return 0
	}
	w := min(l.Window, end+1)
	changes, err := Changes(wealth, end, w)
	if err != nil {
		return 0
	}
	return HistoricalVaR(changes, l.Confidence)
}

// Scale returns the factor targets are multiplied by for a measured VaR.
func (l Limit) Scale(v float64) float64 {
	if l.Max <= 0 || v <= l.Max {
		return 1
	}
	return l.Max / v
}
