// Package geocode resolves free-form addresses to coordinates.
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the geocoder has no result for an address.
var ErrNotFound = eris.New("location not found")

// Result is a geocoded location.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
}

// Client geocodes a single free-form address.
type Client interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}
