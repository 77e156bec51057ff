package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
)

func TestSameSeedSameStream(t *testing.T) {
	a := NewNormal(NewRand(7), 0, 1)
	b := NewNormal(NewRand(7), 0, 1)
	c := NewNormal(NewRand(8), 0, 1)

	var diff bool
	for i := 0; i < 100; i++ {
		x, y, z := a.Next(), b.Next(), c.Next()
		assert.Equal(t, x, y)
		if x != z {
			diff = true
		}
	}
	assert.True(t, diff, "different seeds should give different streams")
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		dist    config.Distribution
		wantErr bool
	}{
		{name: "default is constant", dist: config.Distribution{Value: 3}},
		{name: "constant", dist: config.Constant(2)},
		{name: "normal", dist: config.Normal(0, 0.01)},
		{name: "uniform", dist: config.Uniform(5, 20)},
		{name: "replay", dist: config.Distribution{Type: "replay", Values: []float64{1, 2}}},
		{name: "empty replay", dist: config.Distribution{Type: "replay"}, wantErr: true},
		{name: "unknown", dist: config.Distribution{Type: "levy"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromConfig(tt.dist, NewRand(1))
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
		})
	}
}

func TestReplayCycles(t *testing.T) {
	r := NewReplay([]float64{0.1, -0.2, 0.3})
	var got []float64
	for i := 0; i < 7; i++ {
		got = append(got, r.Next())
	}
	assert.Equal(t, []float64{0.1, -0.2, 0.3, 0.1, -0.2, 0.3, 0.1}, got)
}

func TestTicksRoundsAndClamps(t *testing.T) {
	assert.Equal(t, 4, Ticks(Constant(3.6)))
	assert.Equal(t, 1, Ticks(Constant(-2)))
	assert.Equal(t, 1, Ticks(Constant(0.2)))
}

func TestProperty_UniformStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Float64Range(-1000, 1000).Draw(t, "lo")
		width := rapid.Float64Range(0, 1000).Draw(t, "width")
		seed := rapid.Uint64().Draw(t, "seed")
		u := NewUniform(NewRand(seed), lo, lo+width)
		for i := 0; i < 50; i++ {
			v := u.Next()
			if v < lo || v > lo+width {
				t.Fatalf("draw %v outside [%v, %v]", v, lo, lo+width)
			}
		}
	})
}
