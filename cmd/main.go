package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
	"github.com/gitwitcho/var-agent-model-sub001/internal/db"
	"github.com/gitwitcho/var-agent-model-sub001/internal/db/conf"
	"github.com/gitwitcho/var-agent-model-sub001/internal/metrics"
	"github.com/gitwitcho/var-agent-model-sub001/internal/report"
	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()
	if err := utils.Configure(cfg.Log.Level, cfg.Log.File); err != nil {
		l := utils.GetLogger()
		l.Fatal().Err(err).Msg("Failed to configure logger")
	}
	log := utils.GetLogger().With().Str("component", "main").Logger()
	log.Info().Int("runs", cfg.Runs).Int("ticks", cfg.Ticks).Uint64("seed", cfg.Seed).Msg("Starting simulation")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	}()

	err := run(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("Simulation failed")
		os.Exit(1)
	}
}

// run executes every configured run and stores and reports the results. All resources it
// opens are released before it returns.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		log.Info().Str("addr", srv.Addr).Msg("Serving metrics")
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize result store: %w", err)
	}

	start := time.Now()
	results, err := simulation.RunAll(ctx, cfg, metrics.Observer{})
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.RunsTotal.WithLabelValues("ok").Add(float64(len(results)))
	log.Info().Int("runs", len(results)).Dur("elapsed", time.Since(start)).Msg("Simulation finished")

	var failed int
	for _, res := range results {
		if err := saveResult(ctx, cfg, store, res, log); err != nil {
			log.Error().Err(err).Int("index", res.Index).Msg("Failed to save run")
			failed++
		}
		printSummary(res, log)
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d of %d runs", failed, len(results))
	}
	return nil
}

// openStore returns a Postgres store when a connection string is configured and an
// in-memory one otherwise.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (db.ResultStore, error) {
	if cfg.DB.ConnStr == "" {
		return db.NewMemory(), nil
	}

	// Run migrations if enabled
	if cfg.DB.RunMigration {
		schemaPath, err := conf.FindSchema()
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, cfg.DB.ConnStr, schemaPath); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	dbConfig, err := conf.NewConfig(cfg.DB.ConnStr, cfg.DB.MaxOpen, cfg.DB.MaxIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB config: %w", err)
	}
	store, err := db.New(*dbConfig)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Connected to Postgres")
	return store, nil
}

func saveResult(ctx context.Context, cfg config.Config, store db.ResultStore, res *simulation.Result, log zerolog.Logger) error {
	if err := db.SaveResult(ctx, store, res); err != nil {
		return err
	}
	if cfg.Output.CSV {
		path, err := report.WriteCSV(cfg.Output.Dir, res)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("Wrote CSV")
	}
	if cfg.Output.HTML {
		path, err := report.WriteHTML(cfg.Output.Dir, res)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("Wrote HTML report")
	}
	return nil
}

func printSummary(res *simulation.Result, log zerolog.Logger) {
	summaries, err := report.Summarize(res)
	if err != nil {
		log.Error().Err(err).Msg("Failed to summarize run")
		return
	}
	for _, s := range summaries {
		log.Info().
			Int("index", res.Index).
			Uint64("seed", res.Seed).
			Str("asset", s.Asset).
			Float64("final_price", s.FinalPrice).
			Float64("mean_return", s.Mean).
			Float64("stddev", s.StdDev).
			Float64("excess_kurtosis", s.Kurtosis).
			Float64("abs_autocorrelation", s.AbsAutocor).
			Msg("Run summary")
	}
}
