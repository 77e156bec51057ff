package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/indicator"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy/state_machine"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

// PairsParams configures a long-short spread trader on Asset1 - Asset2.
type PairsParams struct {
	Asset1                string
	Asset2                string
	MAShortTicks          int
	MALongTicks           int
	VolatilityTicks       int
	EntrySigmas           float64
	ExitConvergenceSigmas float64
	ExitStopLossSigmas    float64
	CapitalFactor         float64
	Multiplier            PairsMultiplier
	Update                UpdateMode
	ForceFullRecompute    bool
}

func (p PairsParams) Validate() error {
	if p.Asset1 == "" {
		return invalid("asset1", `""`, "must not be empty")
	}
	if p.Asset2 == "" {
		return invalid("asset2", `""`, "must not be empty")
	}
	if p.Asset1 == p.Asset2 {
		return invalid("asset2", p.Asset2, "must differ from asset1")
	}
	if p.MAShortTicks <= 0 {
		return invalid("maShortTicks", p.MAShortTicks, "must be > 0")
	}
	if p.MAShortTicks >= p.MALongTicks {
		return fmt.Errorf("maShortTicks=%d must be < maLongTicks=%d: %w", p.MAShortTicks, p.MALongTicks, ErrInvalidParam)
	}
	if p.VolatilityTicks <= 0 {
		return invalid("volatilityTicks", p.VolatilityTicks, "must be > 0")
	}
	if p.ExitConvergenceSigmas < 0 {
		return invalid("exitConvergenceSigmas", p.ExitConvergenceSigmas, "must be >= 0")
	}
	if p.ExitConvergenceSigmas >= p.EntrySigmas {
		return fmt.Errorf("exitConvergenceSigmas=%v must be < entrySigmas=%v: %w", p.ExitConvergenceSigmas, p.EntrySigmas, ErrInvalidParam)
	}
	if p.EntrySigmas >= p.ExitStopLossSigmas {
		return fmt.Errorf("entrySigmas=%v must be < exitStopLossSigmas=%v: %w", p.EntrySigmas, p.ExitStopLossSigmas, ErrInvalidParam)
	}
	if _, ok := pairsMultipliers[p.Multiplier]; !ok {
		return invalid("multiplier", int8(p.Multiplier), "")
	}
	if !(p.CapitalFactor > 0) || math.IsInf(p.CapitalFactor, 0) {
		return invalid("capFactor", p.CapitalFactor, "must be a positive number")
	}
	return nil
}

func (p PairsParams) WarmupPeriod() int { return max(p.MALongTicks, p.VolatilityTicks) }

// Pairs trades the spread between two assets. An entry needs a double crossing of the
// entry threshold: the short MA crosses out through it and then back in.
type Pairs struct {
	name   string
	params PairsParams
	mult   pairsMultiplier
	warmup int
	p1, p2 *timeseries.Series
	book   Portfolio
	log    zerolog.Logger

	spread  *timeseries.Series
	shortMA *indicator.MovingAverage
	longMA  *indicator.MovingAverage
	vol     *indicator.MovingVariance
	sm      *state_machine.StateMachine
	seq     sequencer

	upCount, downCount int
	lastComputed       int
	prevShort          float64
	prevUpper          float64
	prevLower          float64

	leg1, leg2             *timeseries.Series
	leg1Orders, leg2Orders *timeseries.Series
}

func NewPairs(name string, p PairsParams, market MarketView, book Portfolio) (*Pairs, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("pairs %s: %w", name, err)
	}
	p1, err := market.Price(p.Asset1)
	if err != nil {
		return nil, fmt.Errorf("pairs %s: %w", name, err)
	}
	p2, err := market.Price(p.Asset2)
	if err != nil {
		return nil, fmt.Errorf("pairs %s: %w", name, err)
	}

	prefix := name + "/" + p.Asset1 + "-" + p.Asset2
	s := &Pairs{
		name:   name,
		params: p,
		mult:   pairsMultipliers[p.Multiplier],
		warmup: p.WarmupPeriod(),
		p1:     p1,
		p2:     p2,
		book:   book,
		log: utils.GetLogger().With().Str("component", "strategy").Str("strategy", name).
			Str("asset1", p.Asset1).Str("asset2", p.Asset2).Logger(),
		spread:       timeseries.New(prefix + "/spread"),
		shortMA:      indicator.NewMovingAverage(p.MAShortTicks),
		longMA:       indicator.NewMovingAverage(p.MALongTicks),
		vol:          indicator.NewMovingVariance(p.VolatilityTicks),
		sm:           state_machine.NewStateMachine(),
		seq:          newSequencer(),
		lastComputed: -1,
		leg1:         timeseries.New(prefix + "/leg1"),
		leg2:         timeseries.New(prefix + "/leg2"),
		leg1Orders:   timeseries.New(prefix + "/leg1-order"),
		leg2Orders:   timeseries.New(prefix + "/leg2-order"),
	}
	s.shortMA.ForceFull(p.ForceFullRecompute)
	s.longMA.ForceFull(p.ForceFullRecompute)
	s.vol.ForceFull(p.ForceFullRecompute)
	return s, nil
}

func (s *Pairs) Name() string { return s.name }

func (s *Pairs) Assets() []string { return []string{s.params.Asset1, s.params.Asset2} }

func (s *Pairs) WarmupPeriod() int { return s.warmup }

func (s *Pairs) Params() PairsParams { return s.params }

func (s *Pairs) StateMachine() *state_machine.StateMachine { return s.sm }

func (s *Pairs) Spread() *timeseries.Series { return s.spread }

// Legs returns this strategy's own position contribution to asset1 and asset2.
func (s *Pairs) Legs() (leg1, leg2 *timeseries.Series) { return s.leg1, s.leg2 }

func (s *Pairs) LegOrders() (leg1, leg2 *timeseries.Series) { return s.leg1Orders, s.leg2Orders }

func (s *Pairs) Trade(tick int) error {
	if err := s.seq.advance(tick, s.log, s.shortMA, s.longMA, s.vol); err != nil {
		return fmt.Errorf("pairs %s: %w", s.name, err)
	}
	obs := tick - 1
	if err := s.extendSpread(obs); err != nil {
		return fmt.Errorf("pairs %s tick %d: %w", s.name, tick, err)
	}

	old2 := previous(s.leg2, tick)
	old1 := s.reconstructLeg1(old2, obs-1)

	var new1, new2 float64
	if tick >= s.warmup {
		var err error
		if new2, err = s.decide(tick, old2); err != nil {
			return fmt.Errorf("pairs %s tick %d: %w", s.name, tick, err)
		}
		new1 = s.reconstructLeg1(new2, obs)
	}
	order1, order2 := new1-old1, new2-old2

	for _, w := range []struct {
		series *timeseries.Series
		v      float64
		order  bool
	}{
		{s.leg1, new1, false}, {s.leg2, new2, false},
		{s.leg1Orders, order1, true}, {s.leg2Orders, order2, true},
	} {
		var err error
		if w.order {
			err = recordOrder(w.series, tick, w.v)
		} else {
			err = record(w.series, tick, w.v)
		}
		if err != nil {
			return err
		}
	}

	// Leg 1 may be shared with other spreads of the same agent, so both legs are added.
	if err := s.book.AddTarget(s.params.Asset1, tick, new1); err != nil {
		return fmt.Errorf("pairs %s: %w", s.name, err)
	}
	if err := s.book.AddTarget(s.params.Asset2, tick, new2); err != nil {
		return fmt.Errorf("pairs %s: %w", s.name, err)
	}
	if err := s.book.AddOrder(s.params.Asset1, tick, order1); err != nil {
		return fmt.Errorf("pairs %s: %w", s.name, err)
	}
	if err := s.book.AddOrder(s.params.Asset2, tick, order2); err != nil {
		return fmt.Errorf("pairs %s: %w", s.name, err)
	}
	return nil
}

// extendSpread appends price1 - price2 for every observation up to obs.
func (s *Pairs) extendSpread(obs int) error {
	for t := s.spread.Len(); t <= obs; t++ {
		a, err := s.p1.Get(t)
		if err != nil {
			return err
		}
		b, err := s.p2.Get(t)
		if err != nil {
			return err
		}
		s.spread.Append(a - b)
	}
	return nil
}

// reconstructLeg1 returns the leg 1 position that hedges leg2 at the prices of observation obs.
func (s *Pairs) reconstructLeg1(leg2 float64, obs int) float64 {
	if leg2 == 0 || obs < 0 {
		return 0
	}
	return -leg2 * s.p2.At(obs) / s.p1.At(obs)
}

// decide returns the new leg 2 position.
func (s *Pairs) decide(tick int, old2 float64) (float64, error) {
	obs := tick - 1
	short, err := s.shortMA.Update(s.spread, obs)
	if err != nil {
		return 0, err
	}
	long, err := s.longMA.Update(s.spread, obs)
	if err != nil {
		return 0, err
	}
	variance, err := s.vol.Update(s.spread, obs)
	if err != nil {
		return 0, err
	}
	sigma := indicator.StdDev(variance)
	upper := long + s.params.EntrySigmas*sigma
	lower := long - s.params.EntrySigmas*sigma

	state := s.sm.GetCurrentState()
	var enter state_machine.State
	switch {
	case state.IsOpen():
		s.upCount, s.downCount = 0, 0
	case s.lastComputed >= 0:
		s.countCrossings(short, upper, lower)
		if s.upCount == 2 {
			enter = state_machine.ShortSpread
		} else if s.downCount == 2 {
			enter = state_machine.LongSpread
		}
	}
	s.prevShort, s.prevUpper, s.prevLower, s.lastComputed = short, upper, lower, tick

	mag := math.Abs(s.mult.value(pairsInputs{shortMA: short, longMA: long, stdDev: sigma})) *
		s.params.CapitalFactor * s.mult.normalization
	ratio := s.p1.At(obs) / s.p2.At(obs)

	if enter != "" {
		s.upCount, s.downCount = 0, 0
		leg2 := -enter.Sign() * mag * ratio
		s.sm.TransitionTo(enter, tick, leg2, "double crossing of entry threshold")
		s.log.Debug().Int("tick", tick).Str("state", string(enter)).Float64("leg2", leg2).Msg("enter spread")
		return leg2, nil
	}
	if !state.IsOpen() {
		return old2, nil
	}

	var converged, stopped bool
	switch state {
	case state_machine.ShortSpread:
		converged = short <= long+s.params.ExitConvergenceSigmas*sigma
		stopped = short >= long+s.params.ExitStopLossSigmas*sigma
	case state_machine.LongSpread:
		converged = short >= long-s.params.ExitConvergenceSigmas*sigma
		stopped = short <= long-s.params.ExitStopLossSigmas*sigma
	}
	if converged || stopped {
		reason := "converged"
		if stopped {
			reason = "stop loss"
		}
		s.sm.TransitionTo(state_machine.Flat, tick, 0, reason)
		s.log.Debug().Int("tick", tick).Str("from", string(state)).Str("reason", reason).Msg("exit spread")
		return 0, nil
	}

	if s.params.Update == UpdateConstant {
		return old2, nil
	}
	return -state.Sign() * mag * ratio, nil
}

// countCrossings advances the double-crossing counters of both thresholds.
func (s *Pairs) countCrossings(short, upper, lower float64) {
	switch s.upCount {
	case 0:
		if s.prevShort < s.prevUpper && short >= upper {
			s.upCount = 1
		}
	case 1:
		if s.prevShort >= s.prevUpper && short < upper {
			s.upCount = 2
		}
	}
	switch s.downCount {
	case 0:
		if s.prevShort > s.prevLower && short <= lower {
			s.downCount = 1
		}
	case 1:
		if s.prevShort <= s.prevLower && short > lower {
			s.downCount = 2
		}
	}
}
