package db

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// schemaStatements create the listing and point-of-interest tables. The
// unique constraints on places.place_id, place_types.name and the
// relation primary key are the conflict targets the ingestion upserts
// rely on for idempotence.
var schemaStatements = []string{
	`DO $$ BEGIN
		CREATE TYPE apartment_status AS ENUM ('available', 'rented', 'sold');
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,

	`CREATE TABLE IF NOT EXISTS apartments (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title       TEXT NOT NULL,
		description TEXT,
		price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		address     TEXT NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		bedrooms    INTEGER,
		bathrooms   INTEGER,
		area        DOUBLE PRECISION,
		images      TEXT[],
		status      apartment_status NOT NULL DEFAULT 'available',
		user_id     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_apartments_created_at ON apartments (created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS places (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		place_id      TEXT NOT NULL UNIQUE,
		address       TEXT NOT NULL DEFAULT '',
		latitude      DOUBLE PRECISION NOT NULL,
		longitude     DOUBLE PRECISION NOT NULL,
		phone         TEXT,
		website       TEXT,
		rating        DOUBLE PRECISION,
		review_count  INTEGER,
		opening_hours JSONB,
		raw_data      JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS place_types (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS place_type_relations (
		place_id      BIGINT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		place_type_id BIGINT NOT NULL REFERENCES place_types(id) ON DELETE CASCADE,
		PRIMARY KEY (place_id, place_type_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_place_type_relations_type ON place_type_relations (place_type_id)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "db: migrate statement %d", i+1)
		}
	}
	zap.L().Info("schema migrated", zap.Int("statements", len(schemaStatements)))
	return nil
}
