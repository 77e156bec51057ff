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

// TrendParams configures a single-asset trend follower.
type TrendParams struct {
	Asset              string
	MAShortTicks       int
	MALongTicks        int
	BreakoutTicks      int
	VolatilityTicks    int
	CapitalFactor      float64
	VariableCapital    bool
	Multiplier         TrendMultiplier
	Update             UpdateMode
	OrderMode          OrderMode
	ShortSelling       ShortSelling
	ForceFullRecompute bool
}

func (p TrendParams) Validate() error {
	if p.Asset == "" {
		return invalid("asset", `""`, "must not be empty")
	}
	if p.MAShortTicks <= 0 {
		return invalid("maShortTicks", p.MAShortTicks, "must be > 0")
	}
	if p.MAShortTicks >= p.MALongTicks {
		return fmt.Errorf("maShortTicks=%d must be < maLongTicks=%d: %w", p.MAShortTicks, p.MALongTicks, ErrInvalidParam)
	}
	if p.BreakoutTicks <= 0 {
		return invalid("breakoutTicks", p.BreakoutTicks, "must be > 0")
	}
	spec, ok := trendMultipliers[p.Multiplier]
	if !ok {
		return invalid("multiplier", int8(p.Multiplier), "")
	}
	if p.VolatilityTicks < 0 || (spec.volatility && p.VolatilityTicks == 0) {
		return invalid("volatilityTicks", p.VolatilityTicks, "must be > 0 for multiplier "+spec.name)
	}
	if !(p.CapitalFactor > 0) || math.IsInf(p.CapitalFactor, 0) {
		return invalid("capFactor", p.CapitalFactor, "must be a positive number")
	}
	return nil
}

// WarmupPeriod is the longest window in use, one more when the multiplier reads MA slopes.
func (p TrendParams) WarmupPeriod() int {
	spec := trendMultipliers[p.Multiplier]
	w := max(p.MALongTicks, p.BreakoutTicks)
	if spec.volatility {
		w = max(w, p.VolatilityTicks)
	}
	if spec.slope {
		w++
	}
	return w
}

// Trend enters on a moving-average crossover and exits on a channel breakout.
type Trend struct {
	name   string
	params TrendParams
	mult   trendMultiplier
	warmup int
	prices *timeseries.Series
	book   Portfolio
	log    zerolog.Logger

	shortMA *indicator.MovingAverage
	longMA  *indicator.MovingAverage
	vol     *indicator.MovingVariance
	sm      *state_machine.StateMachine
	seq     sequencer

	lastComputed int // tick whose moving averages are held in prevShort/prevLong
	prevShort    float64
	prevLong     float64
	prevAbove    bool

	position *timeseries.Series
	orders   *timeseries.Series
}

func NewTrend(name string, p TrendParams, market MarketView, book Portfolio) (*Trend, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("trend %s: %w", name, err)
	}
	prices, err := market.Price(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("trend %s: %w", name, err)
	}

	s := &Trend{
		name:         name,
		params:       p,
		mult:         trendMultipliers[p.Multiplier],
		warmup:       p.WarmupPeriod(),
		prices:       prices,
		book:         book,
		log:          utils.GetLogger().With().Str("component", "strategy").Str("strategy", name).Str("asset", p.Asset).Logger(),
		shortMA:      indicator.NewMovingAverage(p.MAShortTicks),
		longMA:       indicator.NewMovingAverage(p.MALongTicks),
		sm:           state_machine.NewStateMachine(),
		seq:          newSequencer(),
		lastComputed: -1,
		position:     timeseries.New(name + "/" + p.Asset + "/position"),
		orders:       timeseries.New(name + "/" + p.Asset + "/order"),
	}
	if p.VolatilityTicks > 0 {
		s.vol = indicator.NewMovingVariance(p.VolatilityTicks)
	}
	s.shortMA.ForceFull(p.ForceFullRecompute)
	s.longMA.ForceFull(p.ForceFullRecompute)
	if s.vol != nil {
		s.vol.ForceFull(p.ForceFullRecompute)
	}
	return s, nil
}

func (s *Trend) Name() string { return s.name }

func (s *Trend) Assets() []string { return []string{s.params.Asset} }

func (s *Trend) WarmupPeriod() int { return s.warmup }

func (s *Trend) Params() TrendParams { return s.params }

func (s *Trend) StateMachine() *state_machine.StateMachine { return s.sm }

// Positions is this strategy's own contribution to the agent's target, per tick.
func (s *Trend) Positions() *timeseries.Series { return s.position }

func (s *Trend) Orders() *timeseries.Series { return s.orders }

// Trade decides the position for tick from prices observed up to tick-1.
func (s *Trend) Trade(tick int) error {
	trackers := []resetter{s.shortMA, s.longMA}
	if s.vol != nil {
		trackers = append(trackers, s.vol)
	}
	if err := s.seq.advance(tick, s.log, trackers...); err != nil {
		return fmt.Errorf("trend %s: %w", s.name, err)
	}

	old := previous(s.position, tick)
	pos := 0.0
	if tick >= s.warmup {
		var err error
		if pos, err = s.decide(tick, old); err != nil {
			return fmt.Errorf("trend %s tick %d: %w", s.name, tick, err)
		}
	}
	order := pos - old

	if err := record(s.position, tick, pos); err != nil {
		return err
	}
	if err := recordOrder(s.orders, tick, order); err != nil {
		return err
	}
	if err := s.book.AddTarget(s.params.Asset, tick, pos); err != nil {
		return fmt.Errorf("trend %s: %w", s.name, err)
	}
	if err := s.book.AddOrder(s.params.Asset, tick, order); err != nil {
		return fmt.Errorf("trend %s: %w", s.name, err)
	}
	return nil
}

func (s *Trend) decide(tick int, old float64) (float64, error) {
	obs := tick - 1
	in, err := s.indicators(tick)
	if err != nil {
		return 0, err
	}

	above := in.shortMA >= in.longMA
	first := s.lastComputed < 0
	crossUp := above && (first || !s.prevAbove)
	crossDown := !above && (first || s.prevAbove)
	s.prevShort, s.prevLong, s.prevAbove, s.lastComputed = in.shortMA, in.longMA, above, tick

	mag := math.Abs(s.mult.value(in)) * s.params.CapitalFactor * s.mult.normalization
	if s.params.VariableCapital {
		mag *= wealthFactor(s.book.WealthChange(tick - 1))
	}

	state := s.sm.GetCurrentState()
	if !state.IsOpen() {
		switch {
		case crossUp:
			s.sm.TransitionTo(state_machine.Long, tick, mag, "short MA crossed above long MA")
			s.log.Debug().Int("tick", tick).Float64("position", mag).Msg("enter long")
			return mag, nil
		case crossDown && s.params.ShortSelling == ShortSellingAllowed:
			s.sm.TransitionTo(state_machine.Short, tick, -mag, "short MA crossed below long MA")
			s.log.Debug().Int("tick", tick).Float64("position", -mag).Msg("enter short")
			return -mag, nil
		}
		return old, nil
	}

	if s.sm.EntryTick() <= tick-s.params.BreakoutTicks {
		exit, err := s.breakout(state, obs)
		if err != nil {
			return 0, err
		}
		if exit {
			s.sm.TransitionTo(state_machine.Flat, tick, 0, "channel breakout")
			s.log.Debug().Int("tick", tick).Str("from", string(state)).Msg("exit")
			return 0, nil
		}
	}

	if s.params.Update == UpdateConstant {
		return old, nil
	}
	if s.params.OrderMode == OrderAdditive {
		return old + state.Sign()*mag, nil
	}
	return state.Sign() * mag, nil
}

func (s *Trend) indicators(tick int) (trendInputs, error) {
	obs := tick - 1
	var in trendInputs
	var err error
	if in.shortMA, err = s.shortMA.Update(s.prices, obs); err != nil {
		return in, err
	}
	if in.longMA, err = s.longMA.Update(s.prices, obs); err != nil {
		return in, err
	}
	if s.mult.slope {
		if s.lastComputed == tick-1 {
			in.prevShortMA, in.prevLongMA = s.prevShort, s.prevLong
		} else {
			if in.prevShortMA, err = indicator.FullMA(s.prices, obs-1, s.params.MAShortTicks); err != nil {
				return in, err
			}
			if in.prevLongMA, err = indicator.FullMA(s.prices, obs-1, s.params.MALongTicks); err != nil {
				return in, err
			}
		}
	}
	if s.mult.volatility {
		variance, err := s.vol.Update(s.prices, obs)
		if err != nil {
			return in, err
		}
		in.stdDev = indicator.StdDev(variance)
	}
	return in, nil
}

// breakout reports whether the observed price reached the channel formed by the BreakoutTicks
// prices before it.
func (s *Trend) breakout(state state_machine.State, obs int) (bool, error) {
	price := s.prices.At(obs)
	switch state {
	case state_machine.Long:
		lo, err := indicator.WindowMin(s.prices, obs-1, s.params.BreakoutTicks)
		if err != nil {
			return false, err
		}
		return price <= lo, nil
	case state_machine.Short:
		hi, err := indicator.WindowMax(s.prices, obs-1, s.params.BreakoutTicks)
		if err != nil {
			return false, err
		}
		return price >= hi, nil
	}
	return false, nil
}
