package strategy

import (
	"fmt"
	"math"
)

// UpdateMode decides what happens to an open position while no exit triggers.
type UpdateMode int8

const (
	UpdateConstant UpdateMode = iota // hold the position unchanged
	UpdateVariable                   // resize it from the current indicator, sign preserved
)

// OrderMode decides how a variable update is applied.
type OrderMode int8

const (
	OrderPosition OrderMode = iota // new = sign * magnitude
	OrderAdditive                  // new = old + sign * magnitude
)

type ShortSelling int8

const (
	ShortSellingAllowed ShortSelling = iota
	ShortSellingDisallowed
)

// TrendMultiplier selects the signal that sizes a trend position.
type TrendMultiplier int8

const (
	MultiplierConstant TrendMultiplier = iota
	MultiplierFastMASlope
	MultiplierSlopeDiff
	MultiplierSlopeDiffStdDev
	MultiplierInverseStdDev
)

// PairsMultiplier selects the signal that sizes a spread position.
type PairsMultiplier int8

const (
	MultiplierDivergence PairsMultiplier = iota
	MultiplierDivergenceStdDev
)

// trendInputs are the indicator values a trend multiplier may read.
type trendInputs struct {
	shortMA, longMA         float64
	prevShortMA, prevLongMA float64
	stdDev                  float64
}

type trendMultiplier struct {
	name          string
	normalization float64
	slope         bool // needs the moving averages of the previous observation
	volatility    bool // needs the price standard deviation
	value         func(in trendInputs) float64
}

var trendMultipliers = map[TrendMultiplier]trendMultiplier{
	MultiplierConstant: {
		name:          "constant",
		normalization: 12,
		value:         func(trendInputs) float64 { return 1 },
	},
	MultiplierFastMASlope: {
		name:          "fast-ma-slope",
		normalization: 16,
		slope:         true,
		value:         func(in trendInputs) float64 { return in.shortMA - in.prevShortMA },
	},
	MultiplierSlopeDiff: {
		name:          "slope-diff",
		normalization: 25,
		slope:         true,
		value: func(in trendInputs) float64 {
			return (in.shortMA - in.prevShortMA) - (in.longMA - in.prevLongMA)
		},
	},
	MultiplierSlopeDiffStdDev: {
		name:          "slope-diff-stdev",
		normalization: 25,
		slope:         true,
		volatility:    true,
		value: func(in trendInputs) float64 {
			return safeDiv((in.shortMA-in.prevShortMA)-(in.longMA-in.prevLongMA), in.stdDev)
		},
	},
	MultiplierInverseStdDev: {
		name:          "inverse-stdev",
		normalization: 8,
		volatility:    true,
		value:         func(in trendInputs) float64 { return safeDiv(1, in.stdDev) },
	},
}

// pairsInputs are the spread indicator values a pairs multiplier may read.
type pairsInputs struct {
	shortMA, longMA, stdDev float64
}

type pairsMultiplier struct {
	name          string
	normalization float64
	value         func(in pairsInputs) float64
}

var pairsMultipliers = map[PairsMultiplier]pairsMultiplier{
	MultiplierDivergence: {
		name:          "divergence",
		normalization: 1.75,
		value:         func(in pairsInputs) float64 { return in.shortMA - in.longMA },
	},
	MultiplierDivergenceStdDev: {
		name:          "divergence-stdev",
		normalization: 2.5,
		value:         func(in pairsInputs) float64 { return safeDiv(in.shortMA-in.longMA, in.stdDev) },
	},
}

// safeDiv returns 0 for a zero denominator: a flat window carries no sizing signal.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// wealthFactor scales positions by the agent's last wealth change.
func wealthFactor(dw float64) float64 {
	switch {
	case dw > 1:
		return 1 + math.Log(dw)
	case dw < 0:
		return math.Exp(dw)
	default:
		return 1
	}
}

func (m TrendMultiplier) String() string {
	if spec, ok := trendMultipliers[m]; ok {
		return spec.name
	}
	return fmt.Sprintf("trend-multiplier(%d)", int8(m))
}

// Normalization returns the fixed scaling constant of the mode.
func (m TrendMultiplier) Normalization() float64 { return trendMultipliers[m].normalization }

func ParseTrendMultiplier(s string) (TrendMultiplier, error) {
	for m, spec := range trendMultipliers {
		if spec.name == s {
			return m, nil
		}
	}
	return 0, invalid("multiplier", s, "")
}

func (m PairsMultiplier) String() string {
	if spec, ok := pairsMultipliers[m]; ok {
		return spec.name
	}
	return fmt.Sprintf("pairs-multiplier(%d)", int8(m))
}

func (m PairsMultiplier) Normalization() float64 { return pairsMultipliers[m].normalization }

func ParsePairsMultiplier(s string) (PairsMultiplier, error) {
	for m, spec := range pairsMultipliers {
		if spec.name == s {
			return m, nil
		}
	}
	return 0, invalid("multiplier", s, "")
}

func (u UpdateMode) String() string {
	if u == UpdateVariable {
		return "variable"
	}
	return "constant"
}

func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "", "constant":
		return UpdateConstant, nil
	case "variable":
		return UpdateVariable, nil
	}
	return 0, invalid("update", s, "")
}

func (o OrderMode) String() string {
	if o == OrderAdditive {
		return "order"
	}
	return "position"
}

func ParseOrderMode(s string) (OrderMode, error) {
	switch s {
	case "", "position":
		return OrderPosition, nil
	case "order":
		return OrderAdditive, nil
	}
	return 0, invalid("orderMode", s, "")
}

func (s ShortSelling) String() string {
	if s == ShortSellingDisallowed {
		return "disallowed"
	}
	return "allowed"
}

func ParseShortSelling(s string) (ShortSelling, error) {
	switch s {
	case "", "allowed":
		return ShortSellingAllowed, nil
	case "disallowed":
		return ShortSellingDisallowed, nil
	}
	return 0, invalid("shortSelling", s, "")
}
