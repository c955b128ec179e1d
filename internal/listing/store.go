package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/aptscout/aptscout/internal/db"
)

// Store is the apartment repository. Every call is a single round trip.
type Store interface {
	List(ctx context.Context, f Filter) ([]Apartment, error)
	Get(ctx context.Context, id uuid.UUID) (*Apartment, error)
	Create(ctx context.Context, userID string, in CreateInput) (*Apartment, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Apartment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// IDs returns the ids of apartments matching c.
	IDs(ctx context.Context, c Criteria) ([]uuid.UUID, error)
	// Matches is IDs with coordinates attached.
	Matches(ctx context.Context, c Criteria) ([]Match, error)
}

const apartmentColumns = `id, title, description, price::float8, address, latitude, longitude,
		       bedrooms, bathrooms, area, images, status::text, user_id, created_at, updated_at`

// PostgresStore implements Store.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// List implements Store. Newest listings come first.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Apartment, error) {
	var args []any
	where := ""
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, &ValidationError{Problems: []string{fmt.Sprintf("status %q is not one of available, rented, sold", f.Status)}}
		}
		args = append(args, string(f.Status))
		where = "WHERE status = $1::apartment_status"
	}

	sql := fmt.Sprintf(`SELECT %s FROM apartments %s ORDER BY created_at DESC`, apartmentColumns, where)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "listing: list apartments")
	}
	defer rows.Close()

	var out []Apartment
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "listing: scan apartment row")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "listing: list apartments")
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Apartment, error) {
	sql := fmt.Sprintf(`SELECT %s FROM apartments WHERE id = $1`, apartmentColumns)
	a, err := scanApartment(s.pool.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get apartment %s", id)
	}
	return a, nil
}

// Create implements Store. The owner is always userID, never the input.
func (s *PostgresStore) Create(ctx context.Context, userID string, in CreateInput) (*Apartment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, eris.New("listing: create requires a user id")
	}
	status := in.Status
	if status == "" {
		status = StatusAvailable
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}

	sql := fmt.Sprintf(`
		INSERT INTO apartments (id, title, description, price, address, latitude, longitude,
		                        bedrooms, bathrooms, area, images, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::apartment_status, $13)
		RETURNING %s
	`, apartmentColumns)

	a, err := scanApartment(s.pool.QueryRow(ctx, sql,
		uuid.New(), strings.TrimSpace(in.Title), in.Description, in.Price, strings.TrimSpace(in.Address),
		in.Latitude, in.Longitude, in.Bedrooms, in.Bathrooms, in.Area, images, string(status), userID,
	))
	if err != nil {
		return nil, eris.Wrap(err, "listing: create apartment")
	}
	return a, nil
}

// Update implements Store. Only non-nil fields are written.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Apartment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Title != nil {
		set("title", strings.TrimSpace(*in.Title))
	}
	if in.Description.Set {
		set("description", in.Description.Value)
	}
	if in.Price != nil {
		set("price", *in.Price)
	}
	if in.Address != nil {
		set("address", strings.TrimSpace(*in.Address))
	}
	if in.Latitude != nil {
		set("latitude", *in.Latitude)
	}
	if in.Longitude != nil {
		set("longitude", *in.Longitude)
	}
	if in.Bedrooms != nil {
		set("bedrooms", *in.Bedrooms)
	}
	if in.Bathrooms != nil {
		set("bathrooms", *in.Bathrooms)
	}
	if in.Area != nil {
		set("area", *in.Area)
	}
	if in.Images != nil {
		set("images", *in.Images)
	}
	if in.Status != nil {
		args = append(args, string(*in.Status))
		sets = append(sets, fmt.Sprintf("status = $%d::apartment_status", len(args)))
	}
	args = append(args, id)

	sql := fmt.Sprintf(`UPDATE apartments SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), apartmentColumns)

	a, err := scanApartment(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "listing: update apartment %s", id)
	}
	return a, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM apartments WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "listing: delete apartment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IDs implements Store.
func (s *PostgresStore) IDs(ctx context.Context, c Criteria) ([]uuid.UUID, error) {
	matches, err := s.Matches(ctx, c)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids, nil
}

// Matches implements Store. With no filters every apartment matches.
func (s *PostgresStore) Matches(ctx context.Context, c Criteria) ([]Match, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if c.Bedrooms != nil && *c.Bedrooms != 0 {
		add("bedrooms = $%d", *c.Bedrooms)
	}
	if c.Bathrooms != nil && *c.Bathrooms != 0 {
		add("bathrooms = $%d", *c.Bathrooms)
	}
	if c.MaxPrice != nil && *c.MaxPrice != 0 {
		add("price <= $%d", *c.MaxPrice)
	}
	if c.MinPrice != nil && *c.MinPrice != 0 {
		add("price >= $%d", *c.MinPrice)
	}

	sql := `SELECT id, latitude, longitude FROM apartments`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "listing: match apartments")
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Latitude, &m.Longitude); err != nil {
			return nil, eris.Wrap(err, "listing: scan match row")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "listing: match apartments")
}

func scanApartment(row pgx.Row) (*Apartment, error) {
	var (
		a      Apartment
		status string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Price, &a.Address, &a.Latitude, &a.Longitude,
		&a.Bedrooms, &a.Bathrooms, &a.Area, &a.Images, &status, &a.UserID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	if a.Images == nil {
		a.Images = []string{}
	}
	return &a, nil
}
