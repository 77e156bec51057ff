package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/indicator"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

// EquationParams configures the combined trend/value position equation of a long-short agent.
type EquationParams struct {
	Assets        []string
	MAShortTicks  int
	MALongTicks   int
	TrendWeight   float64
	ValueWeight   float64
	CapitalFactor float64
	// NormalizeWeights divides the combined signal by TrendWeight+ValueWeight.
	NormalizeWeights   bool
	ShortSelling       ShortSelling
	ForceFullRecompute bool
}

func (p EquationParams) Validate() error {
	if len(p.Assets) == 0 {
		return invalid("assets", "[]", "must not be empty")
	}
	seen := make(map[string]bool, len(p.Assets))
	for _, a := range p.Assets {
		if a == "" {
			return invalid("assets", `""`, "must not contain empty identifiers")
		}
		if seen[a] {
			return invalid("assets", a, "duplicate")
		}
		seen[a] = true
	}
	if p.MAShortTicks <= 0 {
		return invalid("maShortTicks", p.MAShortTicks, "must be > 0")
	}
	if p.MAShortTicks >= p.MALongTicks {
		return fmt.Errorf("maShortTicks=%d must be < maLongTicks=%d: %w", p.MAShortTicks, p.MALongTicks, ErrInvalidParam)
	}
	if p.TrendWeight < 0 {
		return invalid("trendWeight", p.TrendWeight, "must be >= 0")
	}
	if p.ValueWeight < 0 {
		return invalid("valueWeight", p.ValueWeight, "must be >= 0")
	}
	if p.NormalizeWeights && p.TrendWeight+p.ValueWeight == 0 {
		return invalid("valueWeight", p.ValueWeight, "and trendWeight must not both be 0 when normalizing")
	}
	if !(p.CapitalFactor > 0) || math.IsInf(p.CapitalFactor, 0) {
		return invalid("capFactor", p.CapitalFactor, "must be a positive number")
	}
	return nil
}

type equationLeg struct {
	asset    string
	prices   *timeseries.Series
	logPrice *timeseries.Series
	logRef   *timeseries.Series
	shortMA  *indicator.MovingAverage
	longMA   *indicator.MovingAverage
	position *timeseries.Series
}

// Equation sets, per asset, position = capFactor * (wT * trend + wV * value) where
// trend = (shortMA - longMA) / longMA and value = logRef - logPrice.
type Equation struct {
	name   string
	params EquationParams
	legs   []*equationLeg
	book   Portfolio
	log    zerolog.Logger
	seq    sequencer
}

func NewEquation(name string, p EquationParams, market MarketView, book Portfolio) (*Equation, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("equation %s: %w", name, err)
	}
	s := &Equation{
		name:   name,
		params: p,
		book:   book,
		log:    utils.GetLogger().With().Str("component", "strategy").Str("strategy", name).Logger(),
		seq:    newSequencer(),
	}
	for _, a := range p.Assets {
		leg := &equationLeg{
			asset:    a,
			shortMA:  indicator.NewMovingAverage(p.MAShortTicks),
			longMA:   indicator.NewMovingAverage(p.MALongTicks),
			position: timeseries.New(name + "/" + a + "/position"),
		}
		var err error
		if leg.prices, err = market.Price(a); err != nil {
			return nil, fmt.Errorf("equation %s: %w", name, err)
		}
		if leg.logPrice, err = market.LogPrice(a); err != nil {
			return nil, fmt.Errorf("equation %s: %w", name, err)
		}
		if leg.logRef, err = market.LogReference(a); err != nil {
			return nil, fmt.Errorf("equation %s: %w", name, err)
		}
		leg.shortMA.ForceFull(p.ForceFullRecompute)
		leg.longMA.ForceFull(p.ForceFullRecompute)
		s.legs = append(s.legs, leg)
	}
	return s, nil
}

func (s *Equation) Name() string { return s.name }

func (s *Equation) Assets() []string {
	out := make([]string, len(s.params.Assets))
	copy(out, s.params.Assets)
	return out
}

func (s *Equation) WarmupPeriod() int { return s.params.MALongTicks }

// Positions returns the contribution series of asset, nil for assets the strategy does not trade.
func (s *Equation) Positions(asset string) *timeseries.Series {
	for _, leg := range s.legs {
		if leg.asset == asset {
			return leg.position
		}
	}
	return nil
}

func (s *Equation) Trade(tick int) error {
	var trackers []resetter
	for _, leg := range s.legs {
		trackers = append(trackers, leg.shortMA, leg.longMA)
	}
	if err := s.seq.advance(tick, s.log, trackers...); err != nil {
		return fmt.Errorf("equation %s: %w", s.name, err)
	}

	for _, leg := range s.legs {
		old := previous(leg.position, tick)
		pos := 0.0
		if tick >= s.WarmupPeriod() {
			var err error
			if pos, err = s.position(leg, tick-1); err != nil {
				return fmt.Errorf("equation %s tick %d asset %s: %w", s.name, tick, leg.asset, err)
			}
		}
		if err := record(leg.position, tick, pos); err != nil {
			return err
		}
		if err := s.book.AddTarget(leg.asset, tick, pos); err != nil {
			return fmt.Errorf("equation %s: %w", s.name, err)
		}
		if err := s.book.AddOrder(leg.asset, tick, pos-old); err != nil {
			return fmt.Errorf("equation %s: %w", s.name, err)
		}
	}
	return nil
}

func (s *Equation) position(leg *equationLeg, obs int) (float64, error) {
	short, err := leg.shortMA.Update(leg.prices, obs)
	if err != nil {
		return 0, err
	}
	long, err := leg.longMA.Update(leg.prices, obs)
	if err != nil {
		return 0, err
	}
	ref, err := leg.logRef.Get(obs)
	if err != nil {
		return 0, err
	}
	lp, err := leg.logPrice.Get(obs)
	if err != nil {
		return 0, err
	}

	signal := s.params.TrendWeight*safeDiv(short-long, long) + s.params.ValueWeight*(ref-lp)
	if s.params.NormalizeWeights {
		signal /= s.params.TrendWeight + s.params.ValueWeight
	}
	pos := s.params.CapitalFactor * signal
	if s.params.ShortSelling == ShortSellingDisallowed && pos < 0 {
		pos = 0
	}
	return pos, nil
}
