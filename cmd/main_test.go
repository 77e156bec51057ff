package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Ticks = 30
	cfg.Runs = 2
	cfg.Parallelism = 2
	cfg.Trend.Count, cfg.Value.Count, cfg.LongShort.Count = 1, 1, 1
	cfg.Output = config.OutputConfig{Dir: t.TempDir(), CSV: true}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunWritesResults(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	require.NoError(t, run(context.Background(), cfg, log))

	files, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, buf.String(), "Run summary")
}

func TestRunReturnsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		ctx    func() context.Context
	}{
		{
			name:   "bad metrics address",
			mutate: func(c *config.Config) { c.MetricsAddr = "127.0.0.1" },
			ctx:    context.Background,
		},
		{
			name:   "cancelled",
			mutate: func(*config.Config) {},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			err := run(tt.ctx(), cfg, zerolog.Nop())
			assert.Error(t, err)

			entries, readErr := os.ReadDir(cfg.Output.Dir)
			require.NoError(t, readErr)
			assert.Empty(t, entries, "a failed run writes nothing")
		})
	}
}
