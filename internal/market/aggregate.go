package market

import (
	"github.com/gitwitcho/var-agent-model-sub001/internal/order"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

// Aggregate sums the cleared orders of one agent class in one asset.
type Aggregate struct {
	Orders      *timeseries.Series // net signed order of the tick
	Volume      *timeseries.Series // cumulative sum of absolute orders
	Trades      *timeseries.Series // cumulative count of non-zero orders
	NetPosition *timeseries.Series // class holding after the tick
}

func newAggregate(name string) *Aggregate {
	return &Aggregate{
		Orders:      timeseries.New(name + "/orders"),
		Volume:      timeseries.New(name + "/volume"),
		Trades:      timeseries.New(name + "/trades"),
		NetPosition: timeseries.New(name + "/net-position"),
	}
}

// open starts tick t: the order at zero, everything else carried.
func (a *Aggregate) open(t int) {
	a.Orders.Append(0)
	for _, s := range []*timeseries.Series{a.Volume, a.Trades, a.NetPosition} {
		carry := 0.0
		if t > 0 {
			carry = s.At(t - 1)
		}
		s.Append(carry)
	}
}

func (a *Aggregate) add(t int, o order.Order) error {
	if o.Delta == 0 {
		return nil
	}
	if err := a.Orders.Add(t, o.Delta); err != nil {
		return err
	}
	if err := a.Volume.Add(t, o.Volume()); err != nil {
		return err
	}
	if err := a.Trades.Add(t, 1); err != nil {
		return err
	}
	return a.NetPosition.Add(t, o.Delta)
}

// Ledger is the cumulative profit and loss of one agent class.
type Ledger struct {
	Paper    *timeseries.Series // mark-to-market gains on positions carried into a tick
	Realized *timeseries.Series // cash value of position reductions
}

func newLedger(name string) *Ledger {
	return &Ledger{
		Paper:    timeseries.New(name + "/paper-pnl"),
		Realized: timeseries.New(name + "/realized-pnl"),
	}
}

// update books tick t for the class net positions of every asset:
// paper += (p(t-1)-p(t-2))*net(t-1), realized += (net(t-1)-net(t))*p(t-1).
func (l *Ledger) update(t int, assets []*Asset, nets []*timeseries.Series) {
	var paper, realized float64
	if t > 0 {
		paper, realized = l.Paper.At(t-1), l.Realized.At(t-1)
		for i, a := range assets {
			net := nets[i]
			if t >= 2 {
				paper += (a.price.At(t-1) - a.price.At(t-2)) * net.At(t-1)
			}
			realized += (net.At(t-1) - net.At(t)) * a.price.At(t-1)
		}
	}
	l.Paper.Append(paper)
	l.Realized.Append(realized)
}
