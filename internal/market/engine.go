package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/order"
	"github.com/gitwitcho/var-agent-model-sub001/internal/risk"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

var (
	ErrTickOrder          = errors.New("step out of order")
	ErrRegistrationClosed = errors.New("registration closed")
	ErrInvalidAgent       = errors.New("invalid agent")
)

// Observer receives clearing events. Implementations must not block.
type Observer interface {
	OrderCleared(kind strategy.Kind, o order.Order)
	BuysScaled(kind strategy.Kind, weight float64)
	StepCompleted(tick int)
}

type nopObserver struct{}

func (nopObserver) OrderCleared(strategy.Kind, order.Order) {}
func (nopObserver) BuysScaled(strategy.Kind, float64)       {}
func (nopObserver) StepCompleted(int)                       {}

type Options struct {
	ShortSelling bool
	Borrowing    bool
	VaR          *risk.Limit // nil disables measurement and limiting
	Observer     Observer
}

// Engine advances a market one tick at a time: it lets every agent trade, clears the orders
// class by class, forms the new prices and books profit and loss.
type Engine struct {
	market *Market
	opts   Options
	log    zerolog.Logger

	agents     map[strategy.Kind][]*Agent
	ids        map[string]bool
	aggregates map[string]map[strategy.Kind]*Aggregate
	total      map[string]*timeseries.Series
	ledgers    map[strategy.Kind]*Ledger
	vars       map[strategy.Kind]*timeseries.Series
	scales     map[strategy.Kind]*timeseries.Series

	last int
}

func NewEngine(m *Market, opts Options) *Engine {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	e := &Engine{
		market:     m,
		opts:       opts,
		log:        utils.GetLogger().With().Str("component", "market").Logger(),
		agents:     make(map[strategy.Kind][]*Agent),
		ids:        make(map[string]bool),
		aggregates: make(map[string]map[strategy.Kind]*Aggregate),
		total:      make(map[string]*timeseries.Series),
		ledgers:    make(map[strategy.Kind]*Ledger),
		vars:       make(map[strategy.Kind]*timeseries.Series),
		scales:     make(map[strategy.Kind]*timeseries.Series),
		last:       -1,
	}
	for _, a := range m.assets {
		byKind := make(map[strategy.Kind]*Aggregate, len(strategy.Kinds))
		for _, k := range strategy.Kinds {
			byKind[k] = newAggregate(a.id + "/" + k.String())
		}
		e.aggregates[a.id] = byKind
		e.total[a.id] = timeseries.New(a.id + "/total-orders")
	}
	for _, k := range strategy.Kinds {
		e.ledgers[k] = newLedger(k.String())
		e.vars[k] = timeseries.New(k.String() + "/var")
		e.scales[k] = timeseries.New(k.String() + "/var-scale")
	}
	return e
}

// Register adds an agent. Agents clear within their class in registration order.
func (e *Engine) Register(a *Agent) error {
	if e.last >= 0 {
		return fmt.Errorf("agent %s: %w", a.id, ErrRegistrationClosed)
	}
	if a.id == "" || a.portfolio == nil {
		return fmt.Errorf("agent %q: missing id or portfolio: %w", a.id, ErrInvalidAgent)
	}
	if e.ids[a.id] {
		return fmt.Errorf("agent %s: duplicate id: %w", a.id, ErrInvalidAgent)
	}
	if _, ok := e.ledgers[a.kind]; !ok {
		return fmt.Errorf("agent %s: kind %s: %w", a.id, a.kind, ErrInvalidAgent)
	}
	for _, id := range a.portfolio.Assets() {
		if _, err := e.market.Asset(id); err != nil {
			return fmt.Errorf("agent %s: %w", a.id, err)
		}
	}
	e.ids[a.id] = true
	e.agents[a.kind] = append(e.agents[a.kind], a)
	return nil
}

// Step runs tick t, which must follow the last stepped tick. Tick 0 opens every series
// at its initial value; prices form from tick 1 on.
func (e *Engine) Step(tick int) error {
	if tick != e.last+1 {
		return fmt.Errorf("step %d after %d: %w", tick, e.last, ErrTickOrder)
	}
	if tick > 0 {
		for _, a := range e.market.assets {
			if err := a.advanceReference(tick); err != nil {
				return err
			}
		}
	}
	for _, byKind := range e.aggregates {
		for _, agg := range byKind {
			agg.open(tick)
		}
	}

	for _, k := range strategy.Kinds {
		for _, ag := range e.agents[k] {
			for _, s := range ag.strategies {
				if err := s.Trade(tick); err != nil {
					return fmt.Errorf("tick %d: agent %s: strategy %s: %w", tick, ag.id, s.Name(), err)
				}
			}
			if err := e.clear(ag, tick); err != nil {
				return fmt.Errorf("tick %d: agent %s: %w", tick, ag.id, err)
			}
		}
	}

	for _, a := range e.market.assets {
		var total float64
		for _, k := range strategy.Kinds {
			total += e.aggregates[a.id][k].Orders.At(tick)
		}
		e.total[a.id].Append(total)
		if tick > 0 {
			if err := a.formPrice(tick, total); err != nil {
				return err
			}
		}
	}

	for _, k := range strategy.Kinds {
		nets := make([]*timeseries.Series, len(e.market.assets))
		for i, a := range e.market.assets {
			nets[i] = e.aggregates[a.id][k].NetPosition
		}
		e.ledgers[k].update(tick, e.market.assets, nets)
	}

	if err := e.markToMarket(tick); err != nil {
		return err
	}
	e.last = tick
	e.opts.Observer.StepCompleted(tick)
	e.log.Debug().Int("tick", tick).Msg("step completed")
	return nil
}

// clear turns the agent's targets for tick into filled orders at the previous price.
func (e *Engine) clear(ag *Agent, tick int) error {
	pf := ag.portfolio
	ag.scale = 1
	if e.opts.VaR != nil {
		ag.scale = e.opts.VaR.Scale(ag.lastVaR)
	}

	assets := pf.Assets()
	orders := make([]order.Order, len(assets))
	olds := make([]float64, len(assets))
	prices := make([]float64, len(assets))
	var freed, required float64
	for i, id := range assets {
		a, err := e.market.Asset(id)
		if err != nil {
			return err
		}
		old, err := pf.Holding(id, tick-1)
		if err != nil {
			return err
		}
		target, ok, err := pf.TargetAt(id, tick)
		if err != nil {
			return err
		}
		if !ok {
			target = old
		}
		target *= ag.scale
		if !e.opts.ShortSelling && target < 0 {
			target = 0
		}

		o := order.New(id, old, target)
		p := a.PriceAt(tick - 1)
		switch o.Side() {
		case order.Sell:
			o = o.Rounded()
			freed += o.CashFlow(p)
		case order.Buy:
			required -= o.CashFlow(p)
		}
		orders[i], olds[i], prices[i] = o, old, p
	}

	weight := 1.0
	if !e.opts.Borrowing && required > 0 {
		available := math.Max(pf.Cash()+freed, 0)
		if required > available {
			weight = available / required
			e.opts.Observer.BuysScaled(ag.kind, weight)
			e.log.Debug().Str("agent", ag.id).Int("tick", tick).Float64("weight", weight).Msg("buys scaled to available cash")
		}
	}

	for i := range orders {
		o := orders[i]
		if o.Side() == order.Buy {
			o.Delta *= weight
			o = o.Rounded()
		}
		pf.AdjustCash(o.CashFlow(prices[i]))
		if err := pf.Finalize(o.Asset, tick, olds[i]+o.Delta); err != nil {
			return err
		}
		if err := e.aggregates[o.Asset][ag.kind].add(tick, o); err != nil {
			return err
		}
		if o.Delta != 0 {
			e.opts.Observer.OrderCleared(ag.kind, o)
		}
	}
	return nil
}

// markToMarket records every agent's wealth at the new prices and measures its VaR.
func (e *Engine) markToMarket(tick int) error {
	price := func(id string) float64 { return e.market.byID[id].price.At(tick) }
	for _, k := range strategy.Kinds {
		var sumVaR, sumScale float64
		agents := e.agents[k]
		for _, ag := range agents {
			if err := ag.portfolio.RecordWealth(tick, price); err != nil {
				return fmt.Errorf("tick %d: agent %s: %w", tick, ag.id, err)
			}
			if e.opts.VaR != nil {
				ag.lastVaR = e.opts.VaR.Measure(ag.portfolio.WealthSeries(), tick)
			}
			sumVaR += ag.lastVaR
			sumScale += ag.scale
		}
		scale := 1.0
		if len(agents) > 0 {
			scale = sumScale / float64(len(agents))
		}
		e.vars[k].Append(sumVaR)
		e.scales[k].Append(scale)
	}
	return nil
}

func (e *Engine) Market() *Market { return e.market }

// LastTick returns the last stepped tick, -1 before the first step.
func (e *Engine) LastTick() int { return e.last }

func (e *Engine) Agents(k strategy.Kind) []*Agent { return e.agents[k] }

func (e *Engine) Aggregate(asset string, k strategy.Kind) (*Aggregate, error) {
	byKind, ok := e.aggregates[asset]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", asset, ErrUnknownAsset)
	}
	agg, ok := byKind[k]
	if !ok {
		return nil, fmt.Errorf("kind %s: %w", k, ErrInvalidAgent)
	}
	return agg, nil
}

// TotalOrders is the net signed order over all classes per tick.
func (e *Engine) TotalOrders(asset string) (*timeseries.Series, error) {
	s, ok := e.total[asset]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", asset, ErrUnknownAsset)
	}
	return s, nil
}

func (e *Engine) Ledger(k strategy.Kind) *Ledger { return e.ledgers[k] }

// VaR is the summed end-of-tick VaR of the class.
func (e *Engine) VaR(k strategy.Kind) *timeseries.Series { return e.vars[k] }

// VaRScale is the mean VaR-limit factor applied to the class targets, 1 when unconstrained.
func (e *Engine) VaRScale(k strategy.Kind) *timeseries.Series { return e.scales[k] }
