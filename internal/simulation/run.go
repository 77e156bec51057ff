// Package simulation builds runs from configuration and drives them tick by tick.
package simulation

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/clock"
	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
	"github.com/gitwitcho/var-agent-model-sub001/internal/distribution"
	"github.com/gitwitcho/var-agent-model-sub001/internal/market"
	"github.com/gitwitcho/var-agent-model-sub001/internal/position"
	"github.com/gitwitcho/var-agent-model-sub001/internal/risk"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

// Run is the private context of one simulation: its own RNG, samplers, market and agents.
type Run struct {
	ID     uuid.UUID
	Index  int
	Seed   uint64
	Ticks  int
	Clock  *clock.Clock
	Market *market.Market
	Engine *market.Engine

	log zerolog.Logger
}

// NewRun builds run index of cfg, seeded with cfg.Seed+index. obs may be nil.
func NewRun(cfg config.Config, index int, obs market.Observer) (*Run, error) {
	seed := cfg.Seed + uint64(index)
	id := uuid.New()
	b := &builder{
		cfg: cfg,
		rng: distribution.NewRand(seed),
		log: utils.GetLogger().With().Str("component", "simulation").Str("run", id.String()).Int("index", index).Logger(),
	}

	m, err := b.market()
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", index, err)
	}
	opts := market.Options{
		ShortSelling: cfg.ShortSelling,
		Borrowing:    cfg.Borrowing,
		Observer:     obs,
	}
	if cfg.VaR.Enabled {
		opts.VaR = &risk.Limit{Confidence: cfg.VaR.Confidence, Window: cfg.VaR.Window, Max: cfg.VaR.Limit}
		if err := opts.VaR.Validate(); err != nil {
			return nil, fmt.Errorf("run %d: %w", index, err)
		}
	}
	b.mkt = m
	b.engine = market.NewEngine(m, opts)

	for _, add := range []func() error{b.valueAgents, b.longShortAgents, b.trendAgents} {
		if err := add(); err != nil {
			return nil, fmt.Errorf("run %d: %w", index, err)
		}
	}

	return &Run{
		ID:     id,
		Index:  index,
		Seed:   seed,
		Ticks:  cfg.Ticks,
		Clock:  clock.New(),
		Market: m,
		Engine: b.engine,
		log:    b.log,
	}, nil
}

// Execute steps the run through ticks 0..Ticks. A cancelled run returns no result.
func (r *Run) Execute(ctx context.Context) (*Result, error) {
	s := NewScheduler(r.Clock)
	s.Register("market", 0, func(_ context.Context, tick int) error {
		return r.Engine.Step(tick)
	})
	every := max(r.Ticks/10, 1)
	s.Register("progress", 100, func(_ context.Context, tick int) error {
		if tick > 0 && tick%every == 0 {
			r.log.Debug().Int("tick", tick).Int("ticks", r.Ticks).Msg("progress")
		}
		return nil
	})

	r.log.Info().Uint64("seed", r.Seed).Int("ticks", r.Ticks).Msg("run started")
	if err := s.Run(ctx, r.Ticks); err != nil {
		return nil, fmt.Errorf("run %s: %w", r.ID, err)
	}
	res, err := collect(r)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", r.ID, err)
	}
	ev := r.log.Info()
	for _, k := range strategy.Kinds {
		ev = ev.Int(k.String()+"_entries", res.Entries[k])
	}
	ev.Msg("run finished")
	return res, nil
}

type builder struct {
	cfg    config.Config
	rng    *rand.Rand
	log    zerolog.Logger
	mkt    *market.Market
	engine *market.Engine
}

func (b *builder) market() (*market.Market, error) {
	specs := make([]market.AssetSpec, 0, len(b.cfg.Assets))
	for _, a := range b.cfg.Assets {
		pn, err := distribution.FromConfig(a.PriceNoise, b.rng)
		if err != nil {
			return nil, fmt.Errorf("asset %s price noise: %w", a.ID, err)
		}
		vn, err := distribution.FromConfig(a.ValueNoise, b.rng)
		if err != nil {
			return nil, fmt.Errorf("asset %s value noise: %w", a.ID, err)
		}
		specs = append(specs, market.AssetSpec{
			ID:           a.ID,
			Liquidity:    a.Liquidity,
			InitialPrice: a.InitialPrice,
			InitialValue: a.InitialValue,
			PriceNoise:   pn,
			ValueNoise:   vn,
		})
	}
	return market.New(specs)
}

// samplers turns named distributions into samplers sharing the run RNG.
func (b *builder) samplers(dists map[string]config.Distribution) (map[string]distribution.Sampler, error) {
	out := make(map[string]distribution.Sampler, len(dists))
	// sorted: the RNG draw order must not depend on map iteration
	for _, name := range slices.Sorted(maps.Keys(dists)) {
		s, err := distribution.FromConfig(dists[name], b.rng)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func (b *builder) shortSelling() strategy.ShortSelling {
	if b.cfg.ShortSelling {
		return strategy.ShortSellingAllowed
	}
	return strategy.ShortSellingDisallowed
}

func (b *builder) newAgent(kind strategy.Kind, i int, cash float64) (*market.Agent, *position.Portfolio, error) {
	id := fmt.Sprintf("%s-%d", kind, i)
	pf, err := position.NewPortfolio(id, b.mkt.Assets(), cash)
	if err != nil {
		return nil, nil, err
	}
	return market.NewAgent(id, kind, pf), pf, nil
}

func (b *builder) trendAgents() error {
	c := b.cfg.Trend
	if c.Count == 0 {
		return nil
	}
	s, err := b.samplers(map[string]config.Distribution{
		"short": c.MAShortTicks, "long": c.MALongTicks, "breakout": c.BreakoutTicks,
		"vol": c.VolatilityTicks, "cap": c.CapitalFactor,
	})
	if err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	mult, err := strategy.ParseTrendMultiplier(c.Multiplier)
	if err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	update, err := strategy.ParseUpdateMode(c.Update)
	if err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	orderMode, err := strategy.ParseOrderMode(c.OrderMode)
	if err != nil {
		return fmt.Errorf("trend: %w", err)
	}

	for i := 0; i < c.Count; i++ {
		ag, pf, err := b.newAgent(strategy.KindTrend, i, c.Cash)
		if err != nil {
			return err
		}
		p := strategy.TrendParams{
			MAShortTicks:       distribution.Ticks(s["short"]),
			MALongTicks:        distribution.Ticks(s["long"]),
			BreakoutTicks:      distribution.Ticks(s["breakout"]),
			VolatilityTicks:    distribution.Ticks(s["vol"]),
			CapitalFactor:      s["cap"].Next(),
			VariableCapital:    c.VariableCapital,
			Multiplier:         mult,
			Update:             update,
			OrderMode:          orderMode,
			ShortSelling:       b.shortSelling(),
			ForceFullRecompute: b.cfg.ForceFullRecompute,
		}
		for _, asset := range b.mkt.Assets() {
			p.Asset = asset
			st, err := strategy.NewTrend(ag.ID()+"/"+asset, p, b.mkt, pf)
			if err != nil {
				return err
			}
			ag.AddStrategy(st)
		}
		if err := b.engine.Register(ag); err != nil {
			return err
		}
	}
	b.log.Debug().Int("count", c.Count).Msg("trend agents built")
	return nil
}

func (b *builder) valueAgents() error {
	c := b.cfg.Value
	if c.Count == 0 {
		return nil
	}
	s, err := b.samplers(map[string]config.Distribution{
		"entry": c.EntryThreshold, "exit": c.ExitThreshold, "cap": c.CapitalFactor,
	})
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	update, err := strategy.ParseUpdateMode(c.Update)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	for i := 0; i < c.Count; i++ {
		ag, pf, err := b.newAgent(strategy.KindValue, i, c.Cash)
		if err != nil {
			return err
		}
		p := strategy.ValueParams{
			EntryThreshold: s["entry"].Next(),
			ExitThreshold:  s["exit"].Next(),
			CapitalFactor:  s["cap"].Next(),
			Update:         update,
			ShortSelling:   b.shortSelling(),
		}
		for _, asset := range b.mkt.Assets() {
			p.Asset = asset
			st, err := strategy.NewValue(ag.ID()+"/"+asset, p, b.mkt, pf)
			if err != nil {
				return err
			}
			ag.AddStrategy(st)
		}
		if err := b.engine.Register(ag); err != nil {
			return err
		}
	}
	b.log.Debug().Int("count", c.Count).Msg("value agents built")
	return nil
}

func (b *builder) longShortAgents() error {
	c := b.cfg.LongShort
	if c.Count == 0 {
		return nil
	}
	s, err := b.samplers(map[string]config.Distribution{
		"short": c.MAShortTicks, "long": c.MALongTicks, "vol": c.VolatilityTicks,
		"entry": c.EntrySigmas, "conv": c.ExitConvergenceSigmas, "stop": c.ExitStopLossSigmas,
		"cap": c.CapitalFactor,
	})
	if err != nil {
		return fmt.Errorf("long_short: %w", err)
	}
	update, err := strategy.ParseUpdateMode(c.Update)
	if err != nil {
		return fmt.Errorf("long_short: %w", err)
	}
	var mult strategy.PairsMultiplier
	if c.Model == "pairs" {
		if mult, err = strategy.ParsePairsMultiplier(c.Multiplier); err != nil {
			return fmt.Errorf("long_short: %w", err)
		}
	}

	for i := 0; i < c.Count; i++ {
		ag, pf, err := b.newAgent(strategy.KindLongShort, i, c.Cash)
		if err != nil {
			return err
		}
		short, long := distribution.Ticks(s["short"]), distribution.Ticks(s["long"])
		capFactor := s["cap"].Next()
		switch c.Model {
		case "equation":
			st, err := strategy.NewEquation(ag.ID(), strategy.EquationParams{
				Assets:             b.mkt.Assets(),
				MAShortTicks:       short,
				MALongTicks:        long,
				TrendWeight:        c.TrendWeight,
				ValueWeight:        c.ValueWeight,
				CapitalFactor:      capFactor,
				NormalizeWeights:   c.NormalizeWeights,
				ShortSelling:       b.shortSelling(),
				ForceFullRecompute: b.cfg.ForceFullRecompute,
			}, b.mkt, pf)
			if err != nil {
				return err
			}
			ag.AddStrategy(st)
		default:
			p := strategy.PairsParams{
				MAShortTicks:          short,
				MALongTicks:           long,
				VolatilityTicks:       distribution.Ticks(s["vol"]),
				EntrySigmas:           s["entry"].Next(),
				ExitConvergenceSigmas: s["conv"].Next(),
				ExitStopLossSigmas:    s["stop"].Next(),
				CapitalFactor:         capFactor,
				Multiplier:            mult,
				Update:                update,
				ForceFullRecompute:    b.cfg.ForceFullRecompute,
			}
			for _, pair := range c.Pairs {
				p.Asset1, p.Asset2 = pair[0], pair[1]
				st, err := strategy.NewPairs(ag.ID()+"/"+pair[0]+"-"+pair[1], p, b.mkt, pf)
				if err != nil {
					return err
				}
				ag.AddStrategy(st)
			}
		}
		if err := b.engine.Register(ag); err != nil {
			return err
		}
	}
	b.log.Debug().Int("count", c.Count).Str("model", c.Model).Msg("long-short agents built")
	return nil
}
