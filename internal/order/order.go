// Package order
package order

import (
	"fmt"
	"math"
)

type Side int8

const (
	None Side = 0
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "none"
	}
}

// Order is the change of an agent's holding in one asset during one tick.
type Order struct {
	Asset string
	Delta float64 // new position - old position
}

func New(asset string, oldPosition, newPosition float64) Order {
	return Order{Asset: asset, Delta: newPosition - oldPosition}
}

func (o Order) Side() Side {
	switch {
	case o.Delta > 0:
		return Buy
	case o.Delta < 0:
		return Sell
	default:
		return None
	}
}

// Volume is the absolute size of the order.
func (o Order) Volume() float64 { return math.Abs(o.Delta) }

// CashFlow is the cash the order moves at the given price: negative for buys.
func (o Order) CashFlow(price float64) float64 { return -o.Delta * price }

// Rounded floors buys and ceils sells, so rounding never enlarges an order.
func (o Order) Rounded() Order {
	return Order{Asset: o.Asset, Delta: Round(o.Delta)}
}

// Round floors positive and ceils negative quantities.
func Round(delta float64) float64 {
	if delta > 0 {
		return math.Floor(delta)
	}
	return math.Ceil(delta)
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %.4f", o.Side(), o.Asset, o.Volume())
}
