package config

import (
	"fmt"
	"math"

	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
)

// Validate checks the whole configuration before any run is built. Errors name the
// parameter and the offending value.
func (c Config) Validate() error {
	if c.Ticks <= 0 {
		return fmt.Errorf("ticks=%d must be > 0: %w", c.Ticks, ErrInvalidConfig)
	}
	if c.Runs <= 0 {
		return fmt.Errorf("runs=%d must be > 0: %w", c.Runs, ErrInvalidConfig)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism=%d must be > 0: %w", c.Parallelism, ErrInvalidConfig)
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if c.Trend.Count < 0 || c.Value.Count < 0 || c.LongShort.Count < 0 {
		return fmt.Errorf("agent counts trend=%d value=%d long_short=%d must be >= 0: %w",
			c.Trend.Count, c.Value.Count, c.LongShort.Count, ErrInvalidConfig)
	}
	if c.Trend.Count > 0 {
		if err := c.Trend.validate(); err != nil {
			return err
		}
	}
	if c.Value.Count > 0 {
		if err := c.Value.validate(); err != nil {
			return err
		}
	}
	if c.LongShort.Count > 0 {
		if err := c.LongShort.validate(c.assetIDs()); err != nil {
			return err
		}
	}
	if c.VaR.Enabled {
		if !(c.VaR.Confidence > 0 && c.VaR.Confidence < 1) {
			return fmt.Errorf("var.confidence=%v must be in (0, 1): %w", c.VaR.Confidence, ErrInvalidConfig)
		}
		if c.VaR.Window < 2 {
			return fmt.Errorf("var.window=%d must be >= 2: %w", c.VaR.Window, ErrInvalidConfig)
		}
		if c.VaR.Limit < 0 {
			return fmt.Errorf("var.limit=%v must be >= 0: %w", c.VaR.Limit, ErrInvalidConfig)
		}
	}
	if c.DB.MaxOpen < 0 || c.DB.MaxIdle < 0 {
		return fmt.Errorf("db.max_open=%d db.max_idle=%d must be >= 0: %w", c.DB.MaxOpen, c.DB.MaxIdle, ErrInvalidConfig)
	}
	return nil
}

func (c Config) assetIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		ids[a.ID] = true
	}
	return ids
}

func (c Config) validateAssets() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets must not be empty: %w", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		name := fmt.Sprintf("assets[%d]", i)
		if a.ID == "" {
			return fmt.Errorf("%s.id must not be empty: %w", name, ErrInvalidConfig)
		}
		if seen[a.ID] {
			return fmt.Errorf("%s.id=%q is a duplicate: %w", name, a.ID, ErrInvalidConfig)
		}
		seen[a.ID] = true
		if !(a.Liquidity > 0) {
			return fmt.Errorf("%s.liquidity=%v must be > 0: %w", name, a.Liquidity, ErrInvalidConfig)
		}
		if !(a.InitialPrice > 0) {
			return fmt.Errorf("%s.initial_price=%v must be > 0: %w", name, a.InitialPrice, ErrInvalidConfig)
		}
		if a.InitialValue < 0 {
			return fmt.Errorf("%s.initial_value=%v must be >= 0: %w", name, a.InitialValue, ErrInvalidConfig)
		}
		if err := a.PriceNoise.Validate(name + ".price_noise"); err != nil {
			return err
		}
		if err := a.ValueNoise.Validate(name + ".value_noise"); err != nil {
			return err
		}
	}
	return nil
}

// ticks checks a window distribution: bounded, and at least 1 after rounding.
func ticks(d Distribution, name string) (lo, hi int, err error) {
	if err := d.Validate(name); err != nil {
		return 0, 0, err
	}
	flo, fhi := d.Bounds()
	if math.IsInf(flo, 0) || math.IsInf(fhi, 0) {
		return 0, 0, fmt.Errorf("%s.type=%q must be bounded: %w", name, d.Type, ErrInvalidConfig)
	}
	lo, hi = int(math.Round(flo)), int(math.Round(fhi))
	if lo < 1 {
		return 0, 0, fmt.Errorf("%s lower bound %v must round to >= 1: %w", name, flo, ErrInvalidConfig)
	}
	return lo, hi, nil
}

func orderedWindows(short, long Distribution, prefix string) error {
	_, shortHi, err := ticks(short, prefix+".ma_short_ticks")
	if err != nil {
		return err
	}
	longLo, _, err := ticks(long, prefix+".ma_long_ticks")
	if err != nil {
		return err
	}
	if shortHi >= longLo {
		return fmt.Errorf("%s.ma_short_ticks upper bound %d must be < %s.ma_long_ticks lower bound %d: %w",
			prefix, shortHi, prefix, longLo, ErrInvalidConfig)
	}
	return nil
}

func (t TrendConfig) validate() error {
	if t.Cash < 0 {
		return fmt.Errorf("trend.cash=%v must be >= 0: %w", t.Cash, ErrInvalidConfig)
	}
	if err := orderedWindows(t.MAShortTicks, t.MALongTicks, "trend"); err != nil {
		return err
	}
	if _, _, err := ticks(t.BreakoutTicks, "trend.breakout_ticks"); err != nil {
		return err
	}
	if _, _, err := ticks(t.VolatilityTicks, "trend.volatility_ticks"); err != nil {
		return err
	}
	if err := t.CapitalFactor.positive("trend.cap_factor"); err != nil {
		return err
	}
	if _, err := strategy.ParseTrendMultiplier(t.Multiplier); err != nil {
		return fmt.Errorf("trend.%w", err)
	}
	if _, err := strategy.ParseUpdateMode(t.Update); err != nil {
		return fmt.Errorf("trend.%w", err)
	}
	if _, err := strategy.ParseOrderMode(t.OrderMode); err != nil {
		return fmt.Errorf("trend.%w", err)
	}
	return nil
}

func (v ValueConfig) validate() error {
	if v.Cash < 0 {
		return fmt.Errorf("value.cash=%v must be >= 0: %w", v.Cash, ErrInvalidConfig)
	}
	if err := v.EntryThreshold.positive("value.entry_threshold"); err != nil {
		return err
	}
	if err := v.ExitThreshold.Validate("value.exit_threshold"); err != nil {
		return err
	}
	exitLo, exitHi := v.ExitThreshold.Bounds()
	entryLo, _ := v.EntryThreshold.Bounds()
	if exitLo < 0 || exitHi >= entryLo {
		return fmt.Errorf("value.exit_threshold range [%v, %v] must lie in [0, value.entry_threshold lower bound %v): %w",
			exitLo, exitHi, entryLo, ErrInvalidConfig)
	}
	if err := v.CapitalFactor.positive("value.cap_factor"); err != nil {
		return err
	}
	if _, err := strategy.ParseUpdateMode(v.Update); err != nil {
		return fmt.Errorf("value.%w", err)
	}
	return nil
}

func (l LongShortConfig) validate(assets map[string]bool) error {
	if l.Cash < 0 {
		return fmt.Errorf("long_short.cash=%v must be >= 0: %w", l.Cash, ErrInvalidConfig)
	}
	if err := orderedWindows(l.MAShortTicks, l.MALongTicks, "long_short"); err != nil {
		return err
	}
	if err := l.CapitalFactor.positive("long_short.cap_factor"); err != nil {
		return err
	}

	switch l.Model {
	case "pairs":
		return l.validatePairs(assets)
	case "equation":
		if l.TrendWeight < 0 || l.ValueWeight < 0 {
			return fmt.Errorf("long_short.trend_weight=%v long_short.value_weight=%v must be >= 0: %w",
				l.TrendWeight, l.ValueWeight, ErrInvalidConfig)
		}
		if l.NormalizeWeights && l.TrendWeight+l.ValueWeight == 0 {
			return fmt.Errorf("long_short.normalize_weights needs a non-zero weight sum: %w", ErrInvalidConfig)
		}
		return nil
	default:
		return fmt.Errorf("long_short.model=%q must be pairs or equation: %w", l.Model, ErrInvalidConfig)
	}
}

func (l LongShortConfig) validatePairs(assets map[string]bool) error {
	if len(l.Pairs) == 0 {
		return fmt.Errorf("long_short.pairs must not be empty for model pairs: %w", ErrInvalidConfig)
	}
	for i, p := range l.Pairs {
		for _, a := range p {
			if !assets[a] {
				return fmt.Errorf("long_short.pairs[%d] asset %q is not configured: %w", i, a, ErrInvalidConfig)
			}
		}
		if p[0] == p[1] {
			return fmt.Errorf("long_short.pairs[%d]=%v must name two different assets: %w", i, p, ErrInvalidConfig)
		}
	}
	if _, _, err := ticks(l.VolatilityTicks, "long_short.volatility_ticks"); err != nil {
		return err
	}
	for name, d := range map[string]Distribution{
		"long_short.entry_sigmas":            l.EntrySigmas,
		"long_short.exit_convergence_sigmas": l.ExitConvergenceSigmas,
		"long_short.exit_stop_loss_sigmas":   l.ExitStopLossSigmas,
	} {
		if err := d.Validate(name); err != nil {
			return err
		}
	}
	convLo, convHi := l.ExitConvergenceSigmas.Bounds()
	entryLo, entryHi := l.EntrySigmas.Bounds()
	stopLo, _ := l.ExitStopLossSigmas.Bounds()
	if convLo < 0 || convHi >= entryLo || entryHi >= stopLo {
		return fmt.Errorf("long_short sigmas must satisfy 0 <= convergence [%v, %v] < entry [%v, %v] < stop loss from %v: %w",
			convLo, convHi, entryLo, entryHi, stopLo, ErrInvalidConfig)
	}
	if _, err := strategy.ParsePairsMultiplier(l.Multiplier); err != nil {
		return fmt.Errorf("long_short.%w", err)
	}
	if _, err := strategy.ParseUpdateMode(l.Update); err != nil {
		return fmt.Errorf("long_short.%w", err)
	}
	return nil
}
