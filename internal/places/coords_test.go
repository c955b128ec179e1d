package places

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptscout/aptscout/pkg/geocode"
)

type stubGeocoder struct {
	res   *geocode.Result
	err   error
	calls int
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (*geocode.Result, error) {
	s.calls++
	return s.res, s.err
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		in   string
		want LatLng
		ok   bool
	}{
		{in: "40.7128,-74.0060", want: LatLng{Lat: 40.7128, Lng: -74.006}, ok: true},
		{in: "-33.8688,151.2093", want: LatLng{Lat: -33.8688, Lng: 151.2093}, ok: true},
		{in: "1,2", want: LatLng{Lat: 1, Lng: 2}, ok: true},
		{in: " 1.5,2. ", want: LatLng{Lat: 1.5, Lng: 2}, ok: true},
		{in: "40.7128, -74.0060", ok: false},
		{in: "New York, NY", ok: false},
		{in: "40.7128", ok: false},
		{in: ".5,1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCoordinates(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want.Lat, got.Lat, 1e-9)
				assert.InDelta(t, tt.want.Lng, got.Lng, 1e-9)
			}
		})
	}
}

func TestResolveCenter_CoordinatesSkipGeocoder(t *testing.T) {
	g := &stubGeocoder{}
	ll, err := ResolveCenter(context.Background(), "40.7,-74.0", g)
	require.NoError(t, err)
	assert.Equal(t, LatLng{Lat: 40.7, Lng: -74.0}, ll)
	assert.Equal(t, 0, g.calls)
}

func TestResolveCenter_Geocodes(t *testing.T) {
	g := &stubGeocoder{res: &geocode.Result{Latitude: 40.6782, Longitude: -73.9442}}
	ll, err := ResolveCenter(context.Background(), "Brooklyn, NY", g)
	require.NoError(t, err)
	assert.Equal(t, LatLng{Lat: 40.6782, Lng: -73.9442}, ll)
	assert.Equal(t, 1, g.calls)
}

func TestResolveCenter_NotFound(t *testing.T) {
	g := &stubGeocoder{err: geocode.ErrNotFound}
	_, err := ResolveCenter(context.Background(), "atlantis", g)
	require.Error(t, err)
	assert.Equal(t, "location not found", err.Error())
}

func TestResolveCenter_GeocoderError(t *testing.T) {
	g := &stubGeocoder{err: eris.New("geocode: google status OVER_QUERY_LIMIT")}
	_, err := ResolveCenter(context.Background(), "Brooklyn", g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocoding failed")
	assert.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
}

func TestResolveCenter_NoGeocoder(t *testing.T) {
	_, err := ResolveCenter(context.Background(), "Brooklyn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocoding failed")
}

func TestHaversineMeters(t *testing.T) {
	// Empire State Building to Times Square is about 1.1 km.
	esb := LatLng{Lat: 40.748817, Lng: -73.985428}
	ts := LatLng{Lat: 40.758896, Lng: -73.985130}
	assert.InDelta(t, 1121, HaversineMeters(esb, ts), 10)

	assert.InDelta(t, 0, HaversineMeters(esb, esb), 1e-9)
	assert.InDelta(t, HaversineMeters(esb, ts), HaversineMeters(ts, esb), 1e-9)

	// One degree of latitude is about 111.2 km.
	assert.InDelta(t, 111195, HaversineMeters(LatLng{0, 0}, LatLng{1, 0}), 5)
}
