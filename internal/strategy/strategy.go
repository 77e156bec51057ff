package strategy

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

var (
	ErrInvalidParam = errors.New("invalid strategy parameter")
	ErrTickOrder    = errors.New("tick already traded")
)

// Strategy is the interface for all trading strategies.
type Strategy interface {
	Name() string
	Assets() []string     // assets the strategy writes targets for
	WarmupPeriod() int    // ticks before the first non-zero position
	Trade(tick int) error // writes this tick's targets and orders into the portfolio
}

// Kind is the agent class a strategy belongs to. The market clears classes in a fixed order.
type Kind int8

const (
	KindValue Kind = iota
	KindLongShort
	KindTrend
)

// Kinds lists the agent classes in clearing order.
var Kinds = []Kind{KindValue, KindLongShort, KindTrend}

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindLongShort:
		return "long-short"
	case KindTrend:
		return "trend"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("kind=%q: %w", s, ErrInvalidParam)
}

// MarketView is the read-only market data strategies observe.
type MarketView interface {
	Price(asset string) (*timeseries.Series, error)
	LogPrice(asset string) (*timeseries.Series, error)
	LogReference(asset string) (*timeseries.Series, error)
}

// Portfolio is the part of an agent's portfolio strategies write to.
type Portfolio interface {
	AddTarget(asset string, tick int, v float64) error
	AddOrder(asset string, tick int, v float64) error
	WealthChange(tick int) float64
}

// invalid wraps ErrInvalidParam with the parameter name and offending value.
func invalid(name string, value any, constraint string) error {
	if constraint == "" {
		return fmt.Errorf("%s=%v: %w", name, value, ErrInvalidParam)
	}
	return fmt.Errorf("%s=%v %s: %w", name, value, constraint, ErrInvalidParam)
}

// record writes v at tick into one of the strategy's own series, carrying the previous
// value over any skipped ticks.
func record(s *timeseries.Series, tick int, v float64) error {
	s.PadTo(tick, 0)
	return s.Set(tick, v)
}

// recordOrder is record for order series, which are zero on skipped ticks.
func recordOrder(s *timeseries.Series, tick int, v float64) error {
	s.FillTo(tick, 0)
	return s.Set(tick, v)
}

// previous returns the value of s before tick, 0 when there is none.
func previous(s *timeseries.Series, tick int) float64 {
	if tick <= 0 || s.Len() == 0 {
		return 0
	}
	if tick-1 < s.Len() {
		return s.At(tick - 1)
	}
	return s.At(s.LastTick())
}

type resetter interface{ Reset() }

// sequencer remembers the last traded tick. A forward gap is recoverable: it is logged and the
// trackers are reset so the statistics of this tick are computed in full. Repeating a tick or
// going back is logged and refused: the series it would write are append-only.
type sequencer struct {
	lastTradeTick int
}

func newSequencer() sequencer { return sequencer{lastTradeTick: -1} }

func (q *sequencer) advance(tick int, log zerolog.Logger, trackers ...resetter) error {
	last := q.lastTradeTick
	if last >= 0 && tick <= last {
		log.Warn().Int("tick", tick).Int("last_tick", last).Msg("trade called for a tick already traded")
		return fmt.Errorf("tick %d after %d: %w", tick, last, ErrTickOrder)
	}
	if last >= 0 && tick != last+1 {
		log.Warn().Int("tick", tick).Int("last_tick", last).
			Msg("trade called out of sequence, recomputing statistics in full")
		for _, t := range trackers {
			t.Reset()
		}
	}
	q.lastTradeTick = tick
	return nil
}
