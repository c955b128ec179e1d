// Package search answers natural-language apartment queries by combining a
// language model with the listing and place stores.
package search

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/listing"
	"github.com/aptscout/aptscout/internal/places"
)

// Sentinel errors surfaced to callers.
var (
	ErrBackendUnavailable  = eris.New("unable to connect to the database, please try again later")
	ErrEmptyQuery          = eris.New("search: query is required")
	ErrProviderUnavailable = eris.New("search: provider not configured")
)

// PlaceSource is the part of places.Store search needs.
type PlaceSource interface {
	Ping(ctx context.Context) error
	PlacesByTypes(ctx context.Context, types []string) ([]places.Place, error)
}

// ApartmentSource is the part of listing.Store search needs.
type ApartmentSource interface {
	Matches(ctx context.Context, c listing.Criteria) ([]listing.Match, error)
}

// Result is the answer to one query.
type Result struct {
	Apartments []uuid.UUID `json:"apartments"`
	Places     []int64     `json:"places"`
	Criteria   *Criteria   `json:"criteria"`
}

// Service runs searches.
type Service struct {
	places     PlaceSource
	apartments ApartmentSource
	parser     Parser
}

// NewService wires a Service.
func NewService(ps PlaceSource, as ApartmentSource, parser Parser) *Service {
	return &Service{places: ps, apartments: as, parser: parser}
}

// Search probes the backend, parses query with the model and resolves the
// matching apartment and place ids.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	log := zap.L().With(zap.String("component", "search"))

	if err := s.places.Ping(ctx); err != nil {
		log.Error("backend unreachable", zap.Error(err))
		return nil, ErrBackendUnavailable
	}

	criteria, err := s.parser.Parse(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.apartments.Matches(ctx, criteria.ListingCriteria())
	if err != nil {
		return nil, eris.Wrap(err, "search: match apartments")
	}

	res := &Result{
		Apartments: make([]uuid.UUID, 0, len(matches)),
		Places:     []int64{},
		Criteria:   criteria,
	}
	for _, m := range matches {
		res.Apartments = append(res.Apartments, m.ID)
	}

	if len(criteria.Places.Types) > 0 {
		found, err := s.places.PlacesByTypes(ctx, criteria.Places.Types)
		if err != nil {
			return nil, eris.Wrap(err, "search: match places")
		}
		if set(criteria.Places.MaxDistance) {
			found = withinDistance(found, matches, *criteria.Places.MaxDistance)
		}
		for _, p := range found {
			res.Places = append(res.Places, p.ID)
		}
	}

	log.Info("search complete",
		zap.String("query", query),
		zap.Int("apartments", len(res.Apartments)),
		zap.Int("places", len(res.Places)),
	)
	return res, nil
}

// withinDistance keeps places no farther than maxMeters from at least one
// apartment.
func withinDistance(ps []places.Place, apts []listing.Match, maxMeters float64) []places.Place {
	var out []places.Place
	for _, p := range ps {
		for _, a := range apts {
			if places.HaversineMeters(p.Location(), places.LatLng{Lat: a.Latitude, Lng: a.Longitude}) <= maxMeters {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
