package market

import (
	"github.com/gitwitcho/var-agent-model-sub001/internal/position"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
)

// Agent owns a portfolio and the strategies that write targets into it.
type Agent struct {
	id         string
	kind       strategy.Kind
	portfolio  *position.Portfolio
	strategies []strategy.Strategy

	lastVaR float64 // measured at the end of the previous tick
	scale   float64 // VaR-limit factor applied in the current tick
}

func NewAgent(id string, kind strategy.Kind, portfolio *position.Portfolio, strategies ...strategy.Strategy) *Agent {
	return &Agent{
		id:         id,
		kind:       kind,
		portfolio:  portfolio,
		strategies: strategies,
		scale:      1,
	}
}

func (a *Agent) ID() string { return a.id }

func (a *Agent) Kind() strategy.Kind { return a.kind }

func (a *Agent) Portfolio() *position.Portfolio { return a.portfolio }

func (a *Agent) Strategies() []strategy.Strategy { return a.strategies }

// AddStrategy attaches s. Strategies run in the order they were added.
func (a *Agent) AddStrategy(s strategy.Strategy) { a.strategies = append(a.strategies, s) }
