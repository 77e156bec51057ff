package simulation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
	"github.com/gitwitcho/var-agent-model-sub001/internal/market"
)

// RunAll executes cfg.Runs independent runs with at most cfg.Parallelism at a time.
// Run i is seeded with cfg.Seed+i; results come back in run order. The first failing
// run cancels the others.
func RunAll(ctx context.Context, cfg config.Config, obs market.Observer) ([]*Result, error) {
	results := make([]*Result, cfg.Runs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Parallelism, 1))
	for i := 0; i < cfg.Runs; i++ {
		g.Go(func() error {
			run, err := NewRun(cfg, i, obs)
			if err != nil {
				return err
			}
			res, err := run.Execute(ctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
