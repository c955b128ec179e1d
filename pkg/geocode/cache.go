package geocode

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash      TEXT PRIMARY KEY,
	address           TEXT NOT NULL,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	cached_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// CachedClient memoizes successful lookups of an inner Client in a local
// SQLite file. Misses and errors are never cached.
type CachedClient struct {
	inner Client
	db    *sql.DB
}

// NewCached opens (or creates) the SQLite cache at path. Use ":memory:" for
// a throwaway cache.
func NewCached(ctx context.Context, inner Client, path string) (*CachedClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		cacheMigration,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "geocode: init cache")
		}
	}
	return &CachedClient{inner: inner, db: db}, nil
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)

	var r Result
	err := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, formatted_address FROM geocode_cache WHERE address_hash = ?`, key,
	).Scan(&r.Latitude, &r.Longitude, &r.FormattedAddress)
	switch {
	case err == nil:
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]))
		return &r, nil
	case !errors.Is(err, sql.ErrNoRows):
		zap.L().Warn("geocode: cache lookup failed", zap.Error(err))
	}

	res, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if _, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, address, latitude, longitude, formatted_address)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			formatted_address = excluded.formatted_address,
			cached_at = datetime('now')`,
		key, address, res.Latitude, res.Longitude, res.FormattedAddress,
	); err != nil {
		zap.L().Warn("geocode: cache store failed", zap.Error(err))
	}
	return res, nil
}

// Close releases the cache database.
func (c *CachedClient) Close() error {
	return c.db.Close()
}
