// Package config
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

/*
YAML config example:
ticks: 2000
runs: 4
parallelism: 2
seed: 7
short_selling: false
borrowing: false
assets:
  - id: A1
    liquidity: 400
    initial_price: 100
    price_noise: { type: normal, mean: 0, stddev: 0.01 }
    value_noise: { type: normal, mean: 0, stddev: 0.01 }
trend:
  count: 20
  cash: 100000
  ma_short_ticks: { type: uniform, min: 5, max: 20 }
  ma_long_ticks: { type: uniform, min: 40, max: 120 }
  breakout_ticks: { value: 20 }
  cap_factor: { value: 1 }
  multiplier: constant
long_short:
  count: 5
  model: pairs
  pairs: [[A1, A2]]
var:
  enabled: true
  confidence: 0.99
  window: 250
  limit: 5000
output: { dir: out, csv: true, html: true }
*/

var ErrInvalidConfig = errors.New("invalid config")

// Distribution describes how a per-run or per-agent quantity is drawn.
// Type is one of normal, uniform, constant (the default) or replay.
type Distribution struct {
	Type   string    `yaml:"type"`
	Mean   float64   `yaml:"mean"`
	StdDev float64   `yaml:"stddev"`
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
	Value  float64   `yaml:"value"`
	Values []float64 `yaml:"values"`
}

func Constant(v float64) Distribution { return Distribution{Type: "constant", Value: v} }

func Normal(mean, stddev float64) Distribution {
	return Distribution{Type: "normal", Mean: mean, StdDev: stddev}
}

func Uniform(lo, hi float64) Distribution { return Distribution{Type: "uniform", Min: lo, Max: hi} }

// Bounds returns the smallest and largest value the distribution can produce.
func (d Distribution) Bounds() (lo, hi float64) {
	switch d.Type {
	case "normal":
		if d.StdDev == 0 {
			return d.Mean, d.Mean
		}
		return math.Inf(-1), math.Inf(1)
	case "uniform":
		return d.Min, d.Max
	case "replay":
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, v := range d.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		return lo, hi
	default:
		return d.Value, d.Value
	}
}

func (d Distribution) Validate(name string) error {
	switch d.Type {
	case "", "constant":
	case "normal":
		if d.StdDev < 0 {
			return fmt.Errorf("%s.stddev=%v must be >= 0: %w", name, d.StdDev, ErrInvalidConfig)
		}
	case "uniform":
		if d.Min > d.Max {
			return fmt.Errorf("%s.min=%v must be <= %s.max=%v: %w", name, d.Min, name, d.Max, ErrInvalidConfig)
		}
	case "replay":
		if len(d.Values) == 0 {
			return fmt.Errorf("%s.values must not be empty for replay: %w", name, ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%s.type=%q: %w", name, d.Type, ErrInvalidConfig)
	}
	return nil
}

// positive checks that every value the distribution can produce is > 0.
func (d Distribution) positive(name string) error {
	if err := d.Validate(name); err != nil {
		return err
	}
	if lo, _ := d.Bounds(); !(lo > 0) {
		return fmt.Errorf("%s lower bound %v must be > 0: %w", name, lo, ErrInvalidConfig)
	}
	return nil
}

type AssetConfig struct {
	ID           string       `yaml:"id"`
	Liquidity    float64      `yaml:"liquidity"`
	InitialPrice float64      `yaml:"initial_price"`
	InitialValue float64      `yaml:"initial_value"` // reference value at tick 0, initial_price when 0
	PriceNoise   Distribution `yaml:"price_noise"`
	ValueNoise   Distribution `yaml:"value_noise"`
}

type TrendConfig struct {
	Count           int          `yaml:"count"`
	Cash            float64      `yaml:"cash"`
	MAShortTicks    Distribution `yaml:"ma_short_ticks"`
	MALongTicks     Distribution `yaml:"ma_long_ticks"`
	BreakoutTicks   Distribution `yaml:"breakout_ticks"`
	VolatilityTicks Distribution `yaml:"volatility_ticks"`
	CapitalFactor   Distribution `yaml:"cap_factor"`
	VariableCapital bool         `yaml:"variable_capital"`
	Multiplier      string       `yaml:"multiplier"`
	Update          string       `yaml:"update"`
	OrderMode       string       `yaml:"order_mode"`
}

type ValueConfig struct {
	Count          int          `yaml:"count"`
	Cash           float64      `yaml:"cash"`
	EntryThreshold Distribution `yaml:"entry_threshold"`
	ExitThreshold  Distribution `yaml:"exit_threshold"`
	CapitalFactor  Distribution `yaml:"cap_factor"`
	Update         string       `yaml:"update"`
}

type LongShortConfig struct {
	Count int     `yaml:"count"`
	Cash  float64 `yaml:"cash"`
	// Model is pairs (spread trading) or equation (combined trend/value position).
	Model                 string       `yaml:"model"`
	Pairs                 [][2]string  `yaml:"pairs"`
	MAShortTicks          Distribution `yaml:"ma_short_ticks"`
	MALongTicks           Distribution `yaml:"ma_long_ticks"`
	VolatilityTicks       Distribution `yaml:"volatility_ticks"`
	EntrySigmas           Distribution `yaml:"entry_sigmas"`
	ExitConvergenceSigmas Distribution `yaml:"exit_convergence_sigmas"`
	ExitStopLossSigmas    Distribution `yaml:"exit_stop_loss_sigmas"`
	CapitalFactor         Distribution `yaml:"cap_factor"`
	Multiplier            string       `yaml:"multiplier"`
	Update                string       `yaml:"update"`
	TrendWeight           float64      `yaml:"trend_weight"`
	ValueWeight           float64      `yaml:"value_weight"`
	NormalizeWeights      bool         `yaml:"normalize_weights"`
}

type VaRConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Confidence float64 `yaml:"confidence"`
	Window     int     `yaml:"window"`
	Limit      float64 `yaml:"limit"` // 0 records VaR without limiting positions
}

type OutputConfig struct {
	Dir  string `yaml:"dir"`
	CSV  bool   `yaml:"csv"`
	HTML bool   `yaml:"html"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type DBConfig struct {
	ConnStr      string `yaml:"conn_str"`
	MaxOpen      int    `yaml:"max_open"`
	MaxIdle      int    `yaml:"max_idle"`
	RunMigration bool   `yaml:"run_migration"`
}

type Config struct {
	Ticks              int             `yaml:"ticks"`
	Runs               int             `yaml:"runs"`
	Parallelism        int             `yaml:"parallelism"`
	Seed               uint64          `yaml:"seed"`
	ShortSelling       bool            `yaml:"short_selling"`
	Borrowing          bool            `yaml:"borrowing"`
	ForceFullRecompute bool            `yaml:"force_full_recompute"`
	Assets             []AssetConfig   `yaml:"assets"`
	Trend              TrendConfig     `yaml:"trend"`
	Value              ValueConfig     `yaml:"value"`
	LongShort          LongShortConfig `yaml:"long_short"`
	VaR                VaRConfig       `yaml:"var"`
	Output             OutputConfig    `yaml:"output"`
	Log                LogConfig       `yaml:"log"`
	MetricsAddr        string          `yaml:"metrics_addr"`
	DB                 DBConfig        `yaml:"db"`
}

// Default returns a runnable two-asset setup with all three agent classes.
func Default() Config {
	asset := func(id string) AssetConfig {
		return AssetConfig{
			ID:           id,
			Liquidity:    400,
			InitialPrice: 100,
			PriceNoise:   Normal(0, 0.01),
			ValueNoise:   Normal(0, 0.01),
		}
	}
	return Config{
		Ticks:       1000,
		Runs:        1,
		Parallelism: 1,
		Seed:        42,
		Assets:      []AssetConfig{asset("A1"), asset("A2")},
		Trend: TrendConfig{
			Count:           10,
			Cash:            100000,
			MAShortTicks:    Uniform(5, 20),
			MALongTicks:     Uniform(40, 120),
			BreakoutTicks:   Uniform(10, 40),
			VolatilityTicks: Constant(20),
			CapitalFactor:   Constant(1),
			Multiplier:      "constant",
			Update:          "constant",
			OrderMode:       "position",
		},
		Value: ValueConfig{
			Count:          10,
			Cash:           100000,
			EntryThreshold: Uniform(0.05, 0.1),
			ExitThreshold:  Uniform(0, 0.02),
			CapitalFactor:  Constant(100),
			Update:         "constant",
		},
		LongShort: LongShortConfig{
			Count:                 4,
			Cash:                  100000,
			Model:                 "pairs",
			Pairs:                 [][2]string{{"A1", "A2"}},
			MAShortTicks:          Constant(1),
			MALongTicks:           Uniform(20, 60),
			VolatilityTicks:       Constant(20),
			EntrySigmas:           Constant(2),
			ExitConvergenceSigmas: Constant(0.5),
			ExitStopLossSigmas:    Constant(4),
			CapitalFactor:         Constant(1),
			Multiplier:            "divergence",
			Update:                "constant",
			TrendWeight:           1,
			ValueWeight:           1,
		},
		VaR: VaRConfig{
			Confidence: 0.99,
			Window:     250,
		},
		Output: OutputConfig{Dir: "out", CSV: true},
		Log:    LogConfig{Level: "info"},
		DB:     DBConfig{MaxOpen: 10, MaxIdle: 5},
	}
}

// LoadUnchecked reads path over Default() without validating the result.
func LoadUnchecked(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	cfg, err := LoadUnchecked(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse builds a config from command line arguments. Flags that are set override the file.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to YAML config file")
	ticks := fs.Int("ticks", 0, "Number of ticks per run")
	runs := fs.Int("runs", 0, "Number of independent runs")
	seed := fs.Uint64("seed", 0, "Seed of the first run; run i uses seed+i")
	out := fs.String("out", "", "Output directory for CSV and HTML results")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	metricsAddr := fs.String("metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090)")
	dbConnStr := fs.String("db", "", "Postgres connection string for storing results")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *configFile != "" {
		var err error
		if cfg, err = LoadUnchecked(*configFile); err != nil {
			return cfg, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ticks":
			cfg.Ticks = *ticks
		case "runs":
			cfg.Runs = *runs
		case "seed":
			cfg.Seed = *seed
		case "out":
			cfg.Output.Dir = *out
		case "log-level":
			cfg.Log.Level = *logLevel
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "db":
			cfg.DB.ConnStr = *dbConnStr
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MustLoadConfig parses os.Args and exits on any configuration error.
func MustLoadConfig() Config {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		log := utils.GetLogger()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	return cfg
}
