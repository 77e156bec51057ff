package indicator

import (
	"fmt"
	"math"

	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

func checkWindow(s *timeseries.Series, end, w int) error {
	if w <= 0 {
		return fmt.Errorf("%s: w=%d: %w", s.Name(), w, ErrInvalidWindow)
	}
	if end-w+1 < 0 || end >= s.Len() {
		return fmt.Errorf("%s: window w=%d ending at tick %d (len %d): %w", s.Name(), w, end, s.Len(), ErrInsufficientHistory)
	}
	return nil
}

// checkStep validates the pair of values an incremental update needs: s[end] enters, s[end-w] leaves.
func checkStep(s *timeseries.Series, end, w int) error {
	if w <= 0 {
		return fmt.Errorf("%s: w=%d: %w", s.Name(), w, ErrInvalidWindow)
	}
	if end-w < 0 || end >= s.Len() {
		return fmt.Errorf("%s: incremental step w=%d ending at tick %d (len %d): %w", s.Name(), w, end, s.Len(), ErrInsufficientHistory)
	}
	return nil
}

// FullMA is the mean of the w values ending at tick end.
func FullMA(s *timeseries.Series, end, w int) (float64, error) {
	if err := checkWindow(s, end, w); err != nil {
		return 0, err
	}
	sum := 0.0
	for t := end - w + 1; t <= end; t++ {
		sum += s.At(t)
	}
	return sum / float64(w), nil
}

// IncrementalMA advances the mean of the window ending at end-1 by one tick.
func IncrementalMA(s *timeseries.Series, end, w int, prevMean float64) (float64, error) {
	if err := checkStep(s, end, w); err != nil {
		return 0, err
	}
	return prevMean + (s.At(end)-s.At(end-w))/float64(w), nil
}

// FullVariance returns the mean and population variance of the w values ending at tick end.
func FullVariance(s *timeseries.Series, end, w int) (mean, variance float64, err error) {
	mean, err = FullMA(s, end, w)
	if err != nil {
		return 0, 0, err
	}
	ss := 0.0
	for t := end - w + 1; t <= end; t++ {
		d := s.At(t) - mean
		ss += d * d
	}
	return mean, ss / float64(w), nil
}

// IncrementalVariance rolls the window ending at end-1 forward by one tick.
// Welford form for a fixed window: the dropped and added values update mean and variance together.
func IncrementalVariance(s *timeseries.Series, end, w int, prevMean, prevVariance float64) (mean, variance float64, err error) {
	if err := checkStep(s, end, w); err != nil {
		return 0, 0, err
	}
	added, dropped := s.At(end), s.At(end-w)
	mean = prevMean + (added-dropped)/float64(w)
	variance = prevVariance + (added-dropped)*(added-mean+dropped-prevMean)/float64(w)
	if variance < 0 {
		// rounding only
		variance = 0
	}
	return mean, variance, nil
}

// StdDev is the square root of a variance clamped at zero.
func StdDev(variance float64) float64 {
	return math.Sqrt(math.Max(variance, 0))
}

// WindowMin returns the smallest of the w values ending at tick end.
func WindowMin(s *timeseries.Series, end, w int) (float64, error) {
	if err := checkWindow(s, end, w); err != nil {
		return 0, err
	}
	m := s.At(end)
	for t := end - w + 1; t < end; t++ {
		m = math.Min(m, s.At(t))
	}
	return m, nil
}

// WindowMax returns the largest of the w values ending at tick end.
func WindowMax(s *timeseries.Series, end, w int) (float64, error) {
	if err := checkWindow(s, end, w); err != nil {
		return 0, err
	}
	m := s.At(end)
	for t := end - w + 1; t < end; t++ {
		m = math.Max(m, s.At(t))
	}
	return m, nil
}
