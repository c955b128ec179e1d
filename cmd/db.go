package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aptscout/aptscout/internal/db"
	"github.com/aptscout/aptscout/internal/resilience"
)

// openPool connects to the backend using the store section of the config.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Store.ConnectRetries > 0 {
		retry.MaxAttempts = cfg.Store.ConnectRetries
	}
	if cfg.Store.ConnectBackoff > 0 {
		retry.InitialBackoff = time.Duration(cfg.Store.ConnectBackoff) * time.Millisecond
	}

	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, db.ConnectOptions{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
		Retry:    retry,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open database")
	}
	return pool, nil
}
