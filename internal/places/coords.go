package places

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/aptscout/aptscout/pkg/geocode"
)

var coordsPattern = regexp.MustCompile(`^-?\d+\.?\d*,-?\d+\.?\d*$`)

// ParseCoordinates parses a literal "lat,lng" string. The second return is
// false when s is not in that form.
func ParseCoordinates(s string) (LatLng, bool) {
	s = strings.TrimSpace(s)
	if !coordsPattern.MatchString(s) {
		return LatLng{}, false
	}
	latStr, lngStr, _ := strings.Cut(s, ",")
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return LatLng{}, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lng: lng}, true
}

// ResolveCenter turns a location string into a coordinate, geocoding
// anything that isn't already "lat,lng".
func ResolveCenter(ctx context.Context, location string, g geocode.Client) (LatLng, error) {
	if ll, ok := ParseCoordinates(location); ok {
		return ll, nil
	}
	if g == nil {
		return LatLng{}, eris.New("geocoding failed: no geocoder configured")
	}

	res, err := g.Geocode(ctx, location)
	if errors.Is(err, geocode.ErrNotFound) {
		return LatLng{}, eris.New("location not found")
	}
	if err != nil {
		return LatLng{}, eris.Wrap(err, "geocoding failed")
	}
	return LatLng{Lat: res.Latitude, Lng: res.Longitude}, nil
}
