// Package listing stores apartment listings in the managed backend.
package listing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when no apartment has the requested id.
var ErrNotFound = eris.New("listing: apartment not found")

// Status is the availability of a listing.
type Status string

// Listing statuses, mirroring the apartment_status enum.
const (
	StatusAvailable Status = "available"
	StatusRented    Status = "rented"
	StatusSold      Status = "sold"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusSold:
		return true
	}
	return false
}

// Apartment is one listing.
type Apartment struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Address     string    `json:"address"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Bedrooms    *int      `json:"bedrooms,omitempty"`
	Bathrooms   *int      `json:"bathrooms,omitempty"`
	Area        *float64  `json:"area,omitempty"`
	Images      []string  `json:"images"`
	Status      Status    `json:"status"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput is the caller-supplied part of a new listing.
type CreateInput struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Address     string   `json:"address"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *int     `json:"bathrooms,omitempty"`
	Area        *float64 `json:"area,omitempty"`
	Images      []string `json:"images,omitempty"`
	Status      Status   `json:"status,omitempty"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
// Description can also be cleared with an explicit null.
type UpdateInput struct {
	Title       *string    `json:"title,omitempty"`
	Description NullString `json:"description"`
	Price       *float64   `json:"price,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Bedrooms    *int       `json:"bedrooms,omitempty"`
	Bathrooms   *int       `json:"bathrooms,omitempty"`
	Area        *float64   `json:"area,omitempty"`
	Images      *[]string  `json:"images,omitempty"`
	Status      *Status    `json:"status,omitempty"`
}

// NullString is an optional, nullable string field. Set is false when the
// field was absent; Value is nil when it was null.
type NullString struct {
	Set   bool
	Value *string
}

// SetString returns a NullString holding s.
func SetString(s string) NullString {
	return NullString{Set: true, Value: &s}
}

// SetNull returns a NullString that clears the field.
func SetNull() NullString {
	return NullString{Set: true}
}

func (n *NullString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (n NullString) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// Filter narrows List.
type Filter struct {
	Status Status
}

// Criteria are the structured search filters. A nil or zero field is
// ignored.
type Criteria struct {
	Bedrooms  *int
	Bathrooms *int
	MaxPrice  *float64
	MinPrice  *float64
}

// Match is an apartment id with its coordinate, as returned by searches.
type Match struct {
	ID        uuid.UUID
	Latitude  float64
	Longitude float64
}

// ValidationError lists every problem found in an input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid apartment: " + strings.Join(e.Problems, "; ")
}

type problems []string

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func checkCoords(p *problems, lat, lng float64) {
	p.check(lat >= -90 && lat <= 90, "latitude must be between -90 and 90")
	p.check(lng >= -180 && lng <= 180, "longitude must be between -180 and 180")
}

func checkCounts(p *problems, bedrooms, bathrooms *int, area *float64) {
	p.check(bedrooms == nil || *bedrooms >= 0, "bedrooms must be >= 0")
	p.check(bathrooms == nil || *bathrooms >= 0, "bathrooms must be >= 0")
	p.check(area == nil || *area >= 0, "area must be >= 0")
}

// Validate checks a new listing.
func (in *CreateInput) Validate() error {
	var p problems
	p.check(strings.TrimSpace(in.Title) != "", "title is required")
	p.check(strings.TrimSpace(in.Address) != "", "address is required")
	p.check(in.Price >= 0, "price must be >= 0")
	checkCoords(&p, in.Latitude, in.Longitude)
	checkCounts(&p, in.Bedrooms, in.Bathrooms, in.Area)
	p.check(in.Status == "" || in.Status.Valid(), "status %q is not one of available, rented, sold", in.Status)
	return p.err()
}

// Empty reports whether the update changes nothing.
func (in *UpdateInput) Empty() bool {
	return in.Title == nil && !in.Description.Set && in.Price == nil && in.Address == nil &&
		in.Latitude == nil && in.Longitude == nil && in.Bedrooms == nil && in.Bathrooms == nil &&
		in.Area == nil && in.Images == nil && in.Status == nil
}

// Validate checks the fields present in an update.
func (in *UpdateInput) Validate() error {
	var p problems
	p.check(!in.Empty(), "no fields to update")
	p.check(in.Title == nil || strings.TrimSpace(*in.Title) != "", "title is required")
	p.check(in.Address == nil || strings.TrimSpace(*in.Address) != "", "address is required")
	p.check(in.Price == nil || *in.Price >= 0, "price must be >= 0")
	p.check(in.Latitude == nil || (*in.Latitude >= -90 && *in.Latitude <= 90), "latitude must be between -90 and 90")
	p.check(in.Longitude == nil || (*in.Longitude >= -180 && *in.Longitude <= 180), "longitude must be between -180 and 180")
	checkCounts(&p, in.Bedrooms, in.Bathrooms, in.Area)
	p.check(in.Status == nil || in.Status.Valid(), "status is not one of available, rented, sold")
	return p.err()
}
