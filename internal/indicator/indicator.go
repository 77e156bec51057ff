// Package indicator computes rolling window statistics over time series, in full and incrementally.
package indicator

import "errors"

var (
	// ErrInsufficientHistory means the window reaches before tick 0 or past the end of the series.
	ErrInsufficientHistory = errors.New("insufficient history for window")
	ErrInvalidWindow       = errors.New("window must be positive")
)
