package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/aptscout/aptscout/internal/places"
)

const defaultNearbyRadius = 500

func (s *server) listPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	types, err := typeFilter(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, ok := intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	offset, ok := intParam(w, q.Get("offset"), "offset")
	if !ok {
		return
	}

	ps, err := s.Places.ListPlaces(r.Context(), places.ListOpts{Types: types, Limit: limit, Offset: offset})
	if err != nil {
		internalError(w, r, err)
		return
	}
	if ps == nil {
		ps = []places.Place{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *server) nearbyPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseFinite(q.Get("lat"))
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "invalid or missing lat")
		return
	}
	lng, err := parseFinite(q.Get("lng"))
	if err != nil || lng < -180 || lng > 180 {
		writeError(w, http.StatusBadRequest, "invalid or missing lng")
		return
	}
	radius := float64(defaultNearbyRadius)
	if v := q.Get("radius"); v != "" {
		radius, err = parseFinite(v)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive number of meters")
			return
		}
	}
	types, err := typeFilter(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, ok := intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}

	found, err := s.Nearby.Nearby(r.Context(), places.NearbyQuery{
		Lat:          lat,
		Lng:          lng,
		RadiusMeters: radius,
		Types:        types,
		Limit:        limit,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	if found == nil {
		found = []places.NearbyPlace{}
	}
	writeJSON(w, http.StatusOK, found)
}

// typeFilter maps the ?type= selector onto type names. An absent selector
// means no filter.
func typeFilter(v string) ([]string, error) {
	if v == "" {
		return nil, nil
	}
	return places.ExpandTypes(v)
}

func intParam(w http.ResponseWriter, v, name string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// parseFinite is strconv.ParseFloat without NaN and the infinities, which
// slip through range comparisons.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
