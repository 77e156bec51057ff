// Package position holds agent portfolios: what strategies want to hold and what the market let them hold.
package position

import (
	"errors"
	"fmt"

	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

var (
	ErrUnknownAsset     = errors.New("unknown asset")
	ErrAlreadyFinalized = errors.New("holding already finalized for tick")
)

// book is the per-asset state of a portfolio.
type book struct {
	target   *timeseries.Series // raw strategy targets, summed over strategies within a tick
	orders   *timeseries.Series // raw strategy orders
	holdings *timeseries.Series // finalized by the market after constraints
}

// Portfolio is owned by one agent. Strategies write targets and orders into it; the market
// engine finalizes exactly one holding per asset per tick and moves the cash.
type Portfolio struct {
	owner  string
	assets []string
	books  map[string]*book

	cash       float64
	cashSeries *timeseries.Series
	wealth     *timeseries.Series
}

func NewPortfolio(owner string, assets []string, cash float64) (*Portfolio, error) {
	if owner == "" {
		return nil, errors.New("portfolio owner cannot be empty")
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("portfolio %s: no assets", owner)
	}
	p := &Portfolio{
		owner:      owner,
		books:      make(map[string]*book, len(assets)),
		cash:       cash,
		cashSeries: timeseries.New(owner + "/cash"),
		wealth:     timeseries.New(owner + "/wealth"),
	}
	for _, a := range assets {
		if a == "" {
			return nil, fmt.Errorf("portfolio %s: empty asset identifier", owner)
		}
		if _, dup := p.books[a]; dup {
			return nil, fmt.Errorf("portfolio %s: duplicate asset %q", owner, a)
		}
		p.assets = append(p.assets, a)
		p.books[a] = &book{
			target:   timeseries.New(owner + "/" + a + "/target"),
			orders:   timeseries.New(owner + "/" + a + "/orders"),
			holdings: timeseries.New(owner + "/" + a + "/holdings"),
		}
	}
	return p, nil
}

func (p *Portfolio) Owner() string { return p.owner }

func (p *Portfolio) Assets() []string {
	out := make([]string, len(p.assets))
	copy(out, p.assets)
	return out
}

func (p *Portfolio) book(asset string) (*book, error) {
	b, ok := p.books[asset]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: asset %q: %w", p.owner, asset, ErrUnknownAsset)
	}
	return b, nil
}

// AddTarget adds v to the target position of asset at tick. Several strategies of the same
// agent may contribute to one asset in one tick; their targets are summed.
func (p *Portfolio) AddTarget(asset string, tick int, v float64) error {
	b, err := p.book(asset)
	if err != nil {
		return err
	}
	b.target.PadTo(tick, 0)
	return b.target.Add(tick, v)
}

// AddOrder adds v to the raw order of asset at tick.
func (p *Portfolio) AddOrder(asset string, tick int, v float64) error {
	b, err := p.book(asset)
	if err != nil {
		return err
	}
	b.orders.FillTo(tick, 0)
	return b.orders.Add(tick, v)
}

// TargetAt returns the summed target for asset at tick and whether any strategy wrote one.
func (p *Portfolio) TargetAt(asset string, tick int) (float64, bool, error) {
	b, err := p.book(asset)
	if err != nil {
		return 0, false, err
	}
	if tick < 0 || tick >= b.target.Len() {
		return 0, false, nil
	}
	return b.target.At(tick), true, nil
}

// Holding returns the finalized holding at tick; 0 before the first tick, the last
// finalized holding for ticks not yet finalized.
func (p *Portfolio) Holding(asset string, tick int) (float64, error) {
	b, err := p.book(asset)
	if err != nil {
		return 0, err
	}
	if tick < 0 || b.holdings.Len() == 0 {
		return 0, nil
	}
	if tick >= b.holdings.Len() {
		tick = b.holdings.LastTick()
	}
	return b.holdings.At(tick), nil
}

// Finalize records the holding the market granted for asset at tick.
func (p *Portfolio) Finalize(asset string, tick int, holding float64) error {
	b, err := p.book(asset)
	if err != nil {
		return err
	}
	if b.holdings.Len() > tick {
		return fmt.Errorf("portfolio %s: asset %s tick %d: %w", p.owner, asset, tick, ErrAlreadyFinalized)
	}
	b.holdings.PadTo(tick, 0)
	b.holdings.Append(holding)
	return nil
}

func (p *Portfolio) Cash() float64 { return p.cash }

func (p *Portfolio) AdjustCash(delta float64) { p.cash += delta }

// RecordWealth marks the portfolio to market at tick: cash plus holdings valued at price(asset).
func (p *Portfolio) RecordWealth(tick int, price func(asset string) float64) error {
	w := p.cash
	for _, a := range p.assets {
		h, err := p.Holding(a, tick)
		if err != nil {
			return err
		}
		w += h * price(a)
	}
	p.cashSeries.PadTo(tick, p.cash)
	if err := p.cashSeries.Set(tick, p.cash); err != nil {
		return err
	}
	p.wealth.PadTo(tick, w)
	return p.wealth.Set(tick, w)
}

// Wealth returns the marked-to-market wealth at tick.
func (p *Portfolio) Wealth(tick int) (float64, error) {
	return p.wealth.Get(tick)
}

// WealthChange returns wealth(tick) - wealth(tick-1), or 0 when either is missing.
func (p *Portfolio) WealthChange(tick int) float64 {
	if tick < 1 || tick >= p.wealth.Len() {
		return 0
	}
	return p.wealth.At(tick) - p.wealth.At(tick-1)
}

// WealthSeries exposes the wealth history for risk measurement.
func (p *Portfolio) WealthSeries() *timeseries.Series { return p.wealth }

// Targets exposes the raw target series of asset.
func (p *Portfolio) Targets(asset string) (*timeseries.Series, error) {
	b, err := p.book(asset)
	if err != nil {
		return nil, err
	}
	return b.target, nil
}

// Orders exposes the raw order series of asset.
func (p *Portfolio) Orders(asset string) (*timeseries.Series, error) {
	b, err := p.book(asset)
	if err != nil {
		return nil, err
	}
	return b.orders, nil
}
