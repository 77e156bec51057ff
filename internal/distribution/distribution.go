// Package distribution provides the seeded samplers a run draws its noise and agent parameters from.
package distribution

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
)

// Sampler produces one draw per call.
type Sampler interface {
	Next() float64
}

// NewRand returns the generator of one run. Equal seeds give equal streams.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type Normal struct {
	rng          *rand.Rand
	mean, stddev float64
}

func NewNormal(rng *rand.Rand, mean, stddev float64) *Normal {
	return &Normal{rng: rng, mean: mean, stddev: stddev}
}

func (n *Normal) Next() float64 { return n.mean + n.stddev*n.rng.NormFloat64() }

type Uniform struct {
	rng    *rand.Rand
	lo, hi float64
}

func NewUniform(rng *rand.Rand, lo, hi float64) *Uniform {
	return &Uniform{rng: rng, lo: lo, hi: hi}
}

func (u *Uniform) Next() float64 { return u.lo + (u.hi-u.lo)*u.rng.Float64() }

type Constant float64

func (c Constant) Next() float64 { return float64(c) }

// Replay returns recorded values in order and starts over after the last one.
type Replay struct {
	values []float64
	i      int
}

func NewReplay(values []float64) *Replay {
	v := make([]float64, len(values))
	copy(v, values)
	return &Replay{values: v}
}

func (r *Replay) Next() float64 {
	v := r.values[r.i]
	r.i = (r.i + 1) % len(r.values)
	return v
}

// FromConfig builds the sampler a config entry describes on top of rng.
func FromConfig(d config.Distribution, rng *rand.Rand) (Sampler, error) {
	switch d.Type {
	case "", "constant":
		return Constant(d.Value), nil
	case "normal":
		return NewNormal(rng, d.Mean, d.StdDev), nil
	case "uniform":
		return NewUniform(rng, d.Min, d.Max), nil
	case "replay":
		if len(d.Values) == 0 {
			return nil, fmt.Errorf("replay distribution without values: %w", config.ErrInvalidConfig)
		}
		return NewReplay(d.Values), nil
	default:
		return nil, fmt.Errorf("distribution type=%q: %w", d.Type, config.ErrInvalidConfig)
	}
}

// Ticks draws a window length: the sample rounded to the nearest integer, at least 1.
func Ticks(s Sampler) int {
	return max(1, int(math.Round(s.Next())))
}
