// Package db connects to the managed Postgres backend and owns its schema.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/resilience"
)

// Pool is the subset of *pgxpool.Pool used by the stores. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConnectOptions tunes pool sizing and the bootstrap retry.
type ConnectOptions struct {
	MaxConns int32
	MinConns int32
	Retry    resilience.RetryConfig
}

// Connect creates a pool and verifies it with a ping, retrying transient
// failures with exponential backoff.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, eris.New("db: no database_url configured (set store.database_url)")
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "db: parse connection string")
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = opts.MinConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "db: create connection pool")
	}

	if err := Bootstrap(ctx, pool, opts.Retry); err != nil {
		pool.Close()
		return nil, err
	}

	zap.L().Info("database connection established",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
	)
	return pool, nil
}

// Pinger is anything that can verify its connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Bootstrap pings p until it answers or the retry budget is spent.
func Bootstrap(ctx context.Context, p Pinger, retry resilience.RetryConfig) error {
	if retry.MaxAttempts <= 0 {
		retry = resilience.DefaultRetryConfig()
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("postgres", retry.MaxAttempts)
	}

	err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		return p.Ping(ctx)
	})
	if err != nil {
		return eris.Wrapf(err, "db: ping database after %d attempts", retry.MaxAttempts)
	}
	return nil
}
