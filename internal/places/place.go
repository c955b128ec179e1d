// Package places ingests points of interest from Google Places into the
// backend and queries them back out.
package places

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Supported place type selectors.
const (
	TypeBar        = "bar"
	TypeRestaurant = "restaurant"
	TypeBoth       = "both"
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one stored point of interest.
type Place struct {
	ID           int64           `json:"id"`
	PlaceID      string          `json:"place_id"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Phone        *string         `json:"phone,omitempty"`
	Website      *string         `json:"website,omitempty"`
	Rating       *float64        `json:"rating,omitempty"`
	ReviewCount  *int            `json:"review_count,omitempty"`
	OpeningHours json.RawMessage `json:"opening_hours,omitempty"`
	RawData      json.RawMessage `json:"raw_data,omitempty"`
	Types        []string        `json:"types,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Location returns the place coordinate.
func (p Place) Location() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// NearbyPlace is a Place annotated with its distance from a query point.
type NearbyPlace struct {
	Place
	DistanceMeters float64 `json:"distance_meters"`
}

// ExpandTypes turns a type selector into the concrete types to ingest.
// An empty selector means both.
func ExpandTypes(selector string) ([]string, error) {
	switch selector {
	case "", TypeBoth:
		return []string{TypeBar, TypeRestaurant}, nil
	case TypeBar, TypeRestaurant:
		return []string{selector}, nil
	default:
		return nil, eris.Errorf("places: unknown place type %q (want bar, restaurant or both)", selector)
	}
}
