package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/gitwitcho/var-agent-model-sub001/internal/db/conf"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

// Transaction context key
type txKey struct{}

// WithTransaction adds a transaction to the context
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction retrieves a transaction from context, or returns nil if not present
func GetTransaction(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// executeWithTransaction runs fn in the transaction from ctx, or in a new one that is
// committed on success and rolled back on error.
func (p *Default) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if tx := GetTransaction(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}
	return nil
}

// queryWithTransaction executes a query using transaction from context if available
func (p *Default) queryWithTransaction(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return p.db.QueryContext(ctx, query, args...)
}

type Default struct {
	db *sql.DB
}

func New(c conf.Config) (*Default, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("db config has no connection")
	}
	return &Default{db: c.DB}, nil
}

func (p *Default) GetDB() *sql.DB {
	return p.db
}

func (p *Default) SaveRun(ctx context.Context, run Run) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, run_index, seed, ticks, assets, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			run_index=EXCLUDED.run_index, seed=EXCLUDED.seed, ticks=EXCLUDED.ticks,
			assets=EXCLUDED.assets, created_at=EXCLUDED.created_at`,
			run.ID, run.Index, strconv.FormatUint(run.Seed, 10), run.Ticks, pq.Array(run.Assets), run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save run %s: %w", run.ID, err)
		}
		return nil
	})
}

// SaveSeries bulk-loads every point of series with COPY. Series already stored for the
// run under the same names are replaced.
func (p *Default) SaveSeries(ctx context.Context, runID string, series []*timeseries.Series) error {
	if len(series) == 0 {
		return nil
	}
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Name()
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM series_points WHERE run_id = $1 AND series = ANY($2)`, runID, pq.Array(names)); err != nil {
			return fmt.Errorf("failed to clear series of run %s: %w", runID, err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("series_points", "run_id", "series", "tick", "value"))
		if err != nil {
			return fmt.Errorf("failed to prepare copy for run %s: %w", runID, err)
		}
		defer stmt.Close()

		for _, s := range series {
			for tick, v := range s.Values() {
				if _, err := stmt.ExecContext(ctx, runID, s.Name(), tick, v); err != nil {
					return fmt.Errorf("failed to copy %s tick %d of run %s: %w", s.Name(), tick, runID, err)
				}
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to flush copy for run %s: %w", runID, err)
		}
		return nil
	})
}

func (p *Default) GetRun(ctx context.Context, runID string) (Run, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, run_index, seed, ticks, assets, created_at FROM runs WHERE id = $1`, runID)
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return runs[0], nil
}

func (p *Default) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, run_index, seed, ticks, assets, created_at FROM runs ORDER BY created_at, run_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var out []Run
	for rows.Next() {
		var (
			r    Run
			seed string
		)
		if err := rows.Scan(&r.ID, &r.Index, &seed, &r.Ticks, pq.Array(&r.Assets), &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad seed %q: %w", r.ID, seed, err)
		}
		r.Seed = s
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Default) GetSeries(ctx context.Context, runID, name string) ([]float64, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT value FROM series_points WHERE run_id = $1 AND series = $2 ORDER BY tick`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get series %s of run %s: %w", name, runID, err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan series %s of run %s: %w", name, runID, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("series %s of run %s: %w", name, runID, ErrNotFound)
	}
	return out, nil
}

// Migrate creates the database named in connStr if it does not exist and applies the
// schema file to it.
func Migrate(ctx context.Context, connStr, schemaPath string) error {
	log := utils.GetLogger().With().Str("component", "db").Logger()
	log.Info().Msg("Running database migrations")

	u, err := url.Parse(connStr)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return errors.New("database name not found in connection string")
	}

	base := *u
	base.Path = "/postgres"
	baseDB, err := sql.Open("postgres", base.String())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer baseDB.Close()

	var exists bool
	err = baseDB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if !exists {
		log.Info().Str("database", dbName).Msg("Creating database")
		if _, err := baseDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	schemaSQL, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", schemaPath, err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute %s: %w", schemaPath, err)
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
