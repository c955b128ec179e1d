package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/aptscout/aptscout/internal/db"
)

// Store persists places, their types and the relations between them.
type Store interface {
	// UpsertPlaceType inserts a type by name if absent and returns its id.
	UpsertPlaceType(ctx context.Context, name string) (int64, error)

	// UpsertPlace inserts or updates a place keyed on its Google place_id
	// and returns the row id.
	UpsertPlace(ctx context.Context, p *Place) (int64, error)

	// LinkPlaceType relates a place to a type. Existing links are kept.
	LinkPlaceType(ctx context.Context, placeID, typeID int64) error

	ListPlaces(ctx context.Context, opts ListOpts) ([]Place, error)

	// PlacesByTypes returns every place related to at least one of types.
	PlacesByTypes(ctx context.Context, types []string) ([]Place, error)

	// Nearby returns places within a radius ordered by distance.
	Nearby(ctx context.Context, q NearbyQuery) ([]NearbyPlace, error)

	// Ping checks that the backend answers queries.
	Ping(ctx context.Context) error
}

// ListOpts pages and filters ListPlaces.
type ListOpts struct {
	Types  []string
	Limit  int
	Offset int
}

// NearbyQuery describes a radius search.
type NearbyQuery struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
	Types        []string
	Limit        int
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	default:
		return n
	}
}

const placeColumns = `p.id, p.place_id, p.name, p.address, p.latitude, p.longitude,
		       p.phone, p.website, p.rating, p.review_count, p.opening_hours,
		       p.created_at, p.updated_at`

// haversineSQL computes meters between (p.latitude, p.longitude) and ($1, $2).
const haversineSQL = `6371000 * 2 * asin(sqrt(
			power(sin(radians(p.latitude - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(p.latitude)) *
			power(sin(radians(p.longitude - $2) / 2), 2)))`

// PostgresStore implements Store on the managed Postgres backend.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// UpsertPlaceType implements Store.
func (s *PostgresStore) UpsertPlaceType(ctx context.Context, name string) (int64, error) {
	sql := `
		INSERT INTO place_types (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, sql, name).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "places: upsert place type %s", name)
	}
	return id, nil
}

// UpsertPlace implements Store.
func (s *PostgresStore) UpsertPlace(ctx context.Context, p *Place) (int64, error) {
	sql := `
		INSERT INTO places (place_id, name, address, latitude, longitude, phone, website,
		                    rating, review_count, opening_hours, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (place_id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			opening_hours = EXCLUDED.opening_hours,
			raw_data = EXCLUDED.raw_data,
			updated_at = now()
		RETURNING id
	`
	var id int64
	err := s.pool.QueryRow(ctx, sql,
		p.PlaceID, p.Name, p.Address, p.Latitude, p.Longitude, p.Phone, p.Website,
		p.Rating, p.ReviewCount, p.OpeningHours, p.RawData,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "places: upsert place %s", p.PlaceID)
	}
	return id, nil
}

// LinkPlaceType implements Store.
func (s *PostgresStore) LinkPlaceType(ctx context.Context, placeID, typeID int64) error {
	sql := `
		INSERT INTO place_type_relations (place_id, place_type_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(ctx, sql, placeID, typeID)
	return eris.Wrap(err, "places: link place type")
}

// ListPlaces implements Store. Results are ordered by name and carry their
// type names.
func (s *PostgresStore) ListPlaces(ctx context.Context, opts ListOpts) ([]Place, error) {
	args := []any{clampLimit(opts.Limit), max(opts.Offset, 0)}
	having := ""
	if len(opts.Types) > 0 {
		args = append(args, opts.Types)
		having = "HAVING bool_or(t.name = ANY($3))"
	}

	sql := fmt.Sprintf(`
		SELECT %s,
		       COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS types
		FROM places p
		LEFT JOIN place_type_relations r ON r.place_id = p.id
		LEFT JOIN place_types t ON t.id = r.place_type_id
		GROUP BY p.id
		%s
		ORDER BY p.name, p.id
		LIMIT $1 OFFSET $2
	`, placeColumns, having)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "places: list places")
	}
	defer rows.Close()

	var out []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(placeDest(&p, &p.Types)...); err != nil {
			return nil, eris.Wrap(err, "places: scan place row")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "places: list places")
}

// PlacesByTypes implements Store.
func (s *PostgresStore) PlacesByTypes(ctx context.Context, types []string) ([]Place, error) {
	if len(types) == 0 {
		return nil, nil
	}
	sql := fmt.Sprintf(`
		SELECT DISTINCT ON (p.id) %s
		FROM places p
		JOIN place_type_relations r ON r.place_id = p.id
		JOIN place_types t ON t.id = r.place_type_id
		WHERE t.name = ANY($1)
		ORDER BY p.id
	`, placeColumns)

	rows, err := s.pool.Query(ctx, sql, types)
	if err != nil {
		return nil, eris.Wrap(err, "places: places by types")
	}
	defer rows.Close()

	var out []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(placeDest(&p)...); err != nil {
			return nil, eris.Wrap(err, "places: scan place row")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "places: places by types")
}

// Nearby implements Store.
func (s *PostgresStore) Nearby(ctx context.Context, q NearbyQuery) ([]NearbyPlace, error) {
	if q.RadiusMeters <= 0 {
		return nil, eris.New("places: nearby radius must be > 0")
	}

	args := []any{q.Lat, q.Lng, q.RadiusMeters, clampLimit(q.Limit)}
	typeFilter := ""
	if len(q.Types) > 0 {
		args = append(args, q.Types)
		typeFilter = `WHERE EXISTS (
			SELECT 1 FROM place_type_relations r
			JOIN place_types t ON t.id = r.place_type_id
			WHERE r.place_id = p.id AND t.name = ANY($5))`
	}

	sql := fmt.Sprintf(`
		SELECT * FROM (
			SELECT %s,
			       %s AS distance_m
			FROM places p
			%s
		) n
		WHERE n.distance_m <= $3
		ORDER BY n.distance_m
		LIMIT $4
	`, placeColumns, haversineSQL, typeFilter)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "places: nearby")
	}
	defer rows.Close()

	var out []NearbyPlace
	for rows.Next() {
		var np NearbyPlace
		if err := rows.Scan(placeDest(&np.Place, &np.DistanceMeters)...); err != nil {
			return nil, eris.Wrap(err, "places: scan nearby row")
		}
		out = append(out, np)
	}
	return out, eris.Wrap(rows.Err(), "places: nearby")
}

// Ping implements Store. An empty place_types table still counts as
// reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM place_types LIMIT 1`).Scan(&name)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrap(err, "places: ping backend")
	}
	return nil
}

// placeDest returns scan targets for placeColumns followed by extra.
func placeDest(p *Place, extra ...any) []any {
	dest := []any{
		&p.ID, &p.PlaceID, &p.Name, &p.Address, &p.Latitude, &p.Longitude,
		&p.Phone, &p.Website, &p.Rating, &p.ReviewCount, &p.OpeningHours,
		&p.CreatedAt, &p.UpdatedAt,
	}
	return append(dest, extra...)
}
