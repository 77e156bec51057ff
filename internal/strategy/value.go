package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy/state_machine"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

// ValueParams configures a fundamental investor with state-dependent entry and exit thresholds.
type ValueParams struct {
	Asset          string
	EntryThreshold float64
	ExitThreshold  float64
	CapitalFactor  float64
	Update         UpdateMode
	ShortSelling   ShortSelling
}

func (p ValueParams) Validate() error {
	if p.Asset == "" {
		return invalid("asset", `""`, "must not be empty")
	}
	if p.ExitThreshold < 0 {
		return invalid("exitThreshold", p.ExitThreshold, "must be >= 0")
	}
	if p.ExitThreshold >= p.EntryThreshold {
		return fmt.Errorf("exitThreshold=%v must be < entryThreshold=%v: %w", p.ExitThreshold, p.EntryThreshold, ErrInvalidParam)
	}
	if !(p.CapitalFactor > 0) || math.IsInf(p.CapitalFactor, 0) {
		return invalid("capFactor", p.CapitalFactor, "must be a positive number")
	}
	return nil
}

// Value buys when the log price is below the log reference value by more than the entry
// threshold and sells short when it is above. It exits once the mispricing has closed.
type Value struct {
	name     string
	params   ValueParams
	logPrice *timeseries.Series
	logRef   *timeseries.Series
	book     Portfolio
	log      zerolog.Logger
	sm       *state_machine.StateMachine
	seq      sequencer

	position *timeseries.Series
	orders   *timeseries.Series
}

func NewValue(name string, p ValueParams, market MarketView, book Portfolio) (*Value, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("value %s: %w", name, err)
	}
	logPrice, err := market.LogPrice(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("value %s: %w", name, err)
	}
	logRef, err := market.LogReference(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("value %s: %w", name, err)
	}
	return &Value{
		name:     name,
		params:   p,
		logPrice: logPrice,
		logRef:   logRef,
		book:     book,
		log:      utils.GetLogger().With().Str("component", "strategy").Str("strategy", name).Str("asset", p.Asset).Logger(),
		sm:       state_machine.NewStateMachine(),
		seq:      newSequencer(),
		position: timeseries.New(name + "/" + p.Asset + "/position"),
		orders:   timeseries.New(name + "/" + p.Asset + "/order"),
	}, nil
}

func (s *Value) Name() string { return s.name }

func (s *Value) Assets() []string { return []string{s.params.Asset} }

// WarmupPeriod is one tick: the first decision needs one observed price.
func (s *Value) WarmupPeriod() int { return 1 }

func (s *Value) StateMachine() *state_machine.StateMachine { return s.sm }

func (s *Value) Positions() *timeseries.Series { return s.position }

func (s *Value) Trade(tick int) error {
	if err := s.seq.advance(tick, s.log); err != nil {
		return fmt.Errorf("value %s: %w", s.name, err)
	}
	old := previous(s.position, tick)
	pos := 0.0
	if tick >= s.WarmupPeriod() {
		var err error
		if pos, err = s.decide(tick, old); err != nil {
			return fmt.Errorf("value %s tick %d: %w", s.name, tick, err)
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
		return fmt.Errorf("value %s: %w", s.name, err)
	}
	return s.book.AddOrder(s.params.Asset, tick, order)
}

func (s *Value) decide(tick int, old float64) (float64, error) {
	obs := tick - 1
	ref, err := s.logRef.Get(obs)
	if err != nil {
		return 0, err
	}
	lp, err := s.logPrice.Get(obs)
	if err != nil {
		return 0, err
	}
	m := ref - lp
	mag := s.params.CapitalFactor * math.Abs(m)

	state := s.sm.GetCurrentState()
	if !state.IsOpen() {
		switch {
		case m > s.params.EntryThreshold:
			s.sm.TransitionTo(state_machine.Long, tick, mag, "undervalued")
			return mag, nil
		case m < -s.params.EntryThreshold && s.params.ShortSelling == ShortSellingAllowed:
			s.sm.TransitionTo(state_machine.Short, tick, -mag, "overvalued")
			return -mag, nil
		}
		return old, nil
	}

	if math.Abs(m) < s.params.ExitThreshold || m*state.Sign() < 0 {
		s.sm.TransitionTo(state_machine.Flat, tick, 0, "mispricing closed")
		return 0, nil
	}
	if s.params.Update == UpdateConstant {
		return old, nil
	}
	return state.Sign() * mag, nil
}
