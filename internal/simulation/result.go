package simulation

import (
	"github.com/gitwitcho/var-agent-model-sub001/internal/market"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy/state_machine"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

// Result holds the exported series of one finished run, each of length Ticks+1.
type Result struct {
	RunID   string
	Index   int
	Seed    uint64
	Ticks   int
	Assets  []string
	// Entries counts flat-to-open transitions per agent class over the whole run.
	Entries map[strategy.Kind]int

	series []*timeseries.Series
	byName map[string]*timeseries.Series
}

func (r *Result) add(s *timeseries.Series) {
	if r.byName == nil {
		r.byName = make(map[string]*timeseries.Series)
	}
	r.series = append(r.series, s)
	r.byName[s.Name()] = s
}

// Series returns the named series, e.g. "A1/log-price" or "trend/paper-pnl".
func (r *Result) Series(name string) (*timeseries.Series, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// All returns every series in export order: per asset, then per class.
func (r *Result) All() []*timeseries.Series {
	out := make([]*timeseries.Series, len(r.series))
	copy(out, r.series)
	return out
}

func (r *Result) Names() []string {
	names := make([]string, len(r.series))
	for i, s := range r.series {
		names[i] = s.Name()
	}
	return names
}

func collect(run *Run) (*Result, error) {
	res := &Result{
		RunID:   run.ID.String(),
		Index:   run.Index,
		Seed:    run.Seed,
		Ticks:   run.Ticks,
		Assets:  run.Market.Assets(),
		Entries: make(map[strategy.Kind]int, len(strategy.Kinds)),
	}
	for _, k := range strategy.Kinds {
		res.Entries[k] = entries(run.Engine.Agents(k))
	}
	for _, id := range res.Assets {
		price, err := run.Market.Price(id)
		if err != nil {
			return nil, err
		}
		logPrice, err := run.Market.LogPrice(id)
		if err != nil {
			return nil, err
		}
		logRef, err := run.Market.LogReference(id)
		if err != nil {
			return nil, err
		}
		total, err := run.Engine.TotalOrders(id)
		if err != nil {
			return nil, err
		}
		res.add(logPrice)
		res.add(price)
		res.add(logRef)
		res.add(total)
		for _, k := range strategy.Kinds {
			agg, err := run.Engine.Aggregate(id, k)
			if err != nil {
				return nil, err
			}
			res.add(agg.Orders)
			res.add(agg.NetPosition)
			res.add(agg.Volume)
			res.add(agg.Trades)
		}
	}
	for _, k := range strategy.Kinds {
		l := run.Engine.Ledger(k)
		res.add(l.Paper)
		res.add(l.Realized)
		res.add(run.Engine.VaR(k))
		res.add(run.Engine.VaRScale(k))
	}
	return res, nil
}

type stateful interface {
	StateMachine() *state_machine.StateMachine
}

// entries sums the entry counts of every strategy that keeps a state machine.
func entries(agents []*market.Agent) int {
	n := 0
	for _, ag := range agents {
		for _, s := range ag.Strategies() {
			if st, ok := s.(stateful); ok {
				n += st.StateMachine().EntryCount()
			}
		}
	}
	return n
}
