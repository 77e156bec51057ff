package indicator

import "github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"

// MovingAverage keeps the mean of a sliding window between calls. It updates incrementally only
// when the window advances by exactly one tick since the previous update; otherwise it recomputes.
type MovingAverage struct {
	window    int
	mean      float64
	lastEnd   int
	valid     bool
	forceFull bool
}

func NewMovingAverage(window int) *MovingAverage {
	return &MovingAverage{window: window, lastEnd: -1}
}

// ForceFull makes every update a full recomputation.
func (m *MovingAverage) ForceFull(on bool) { m.forceFull = on }

func (m *MovingAverage) Window() int { return m.window }

// Reset drops the stored mean so the next update is a full recomputation.
func (m *MovingAverage) Reset() {
	m.valid = false
	m.lastEnd = -1
}

// Update returns the mean of the window ending at tick end.
func (m *MovingAverage) Update(s *timeseries.Series, end int) (float64, error) {
	var (
		mean float64
		err  error
	)
	if m.valid && !m.forceFull && end == m.lastEnd+1 {
		mean, err = IncrementalMA(s, end, m.window, m.mean)
	} else {
		mean, err = FullMA(s, end, m.window)
	}
	if err != nil {
		return 0, err
	}
	m.mean, m.lastEnd, m.valid = mean, end, true
	return mean, nil
}

// Value returns the last computed mean and whether one exists.
func (m *MovingAverage) Value() (float64, bool) { return m.mean, m.valid }

// MovingVariance is the variance counterpart of MovingAverage.
type MovingVariance struct {
	window    int
	mean      float64
	variance  float64
	lastEnd   int
	valid     bool
	forceFull bool
}

func NewMovingVariance(window int) *MovingVariance {
	return &MovingVariance{window: window, lastEnd: -1}
}

func (m *MovingVariance) ForceFull(on bool) { m.forceFull = on }

func (m *MovingVariance) Window() int { return m.window }

func (m *MovingVariance) Reset() {
	m.valid = false
	m.lastEnd = -1
}

// Update returns the population variance of the window ending at tick end.
func (m *MovingVariance) Update(s *timeseries.Series, end int) (float64, error) {
	var (
		mean, variance float64
		err            error
	)
	if m.valid && !m.forceFull && end == m.lastEnd+1 {
		mean, variance, err = IncrementalVariance(s, end, m.window, m.mean, m.variance)
	} else {
		mean, variance, err = FullVariance(s, end, m.window)
	}
	if err != nil {
		return 0, err
	}
	m.mean, m.variance, m.lastEnd, m.valid = mean, variance, end, true
	return variance, nil
}

func (m *MovingVariance) StdDev() float64 { return StdDev(m.variance) }
