// Package api serves the JSON HTTP surface over listings, places and search.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aptscout/aptscout/internal/listing"
	"github.com/aptscout/aptscout/internal/places"
	"github.com/aptscout/aptscout/internal/search"
)

// PlaceLister lists ingested places.
type PlaceLister interface {
	ListPlaces(ctx context.Context, opts places.ListOpts) ([]places.Place, error)
}

// NearbyFinder answers radius queries. Both the Postgres store and the
// Elasticsearch index implement it.
type NearbyFinder interface {
	Nearby(ctx context.Context, q places.NearbyQuery) ([]places.NearbyPlace, error)
}

// Searcher runs natural-language searches.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Result, error)
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Apartments     listing.Store
	Places         PlaceLister
	Nearby         NearbyFinder
	Search         Searcher
	JWTSecret      []byte
	AllowedOrigins []string
}

type server struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	s := &server{Deps: d}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/apartments", func(r chi.Router) {
			r.Get("/", s.listApartments)
			r.Get("/{id}", s.getApartment)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth(d.JWTSecret))
				r.Post("/", s.createApartment)
				r.Patch("/{id}", s.updateApartment)
				r.Delete("/{id}", s.deleteApartment)
			})
		})

		r.Post("/search", s.search)

		r.Get("/places", s.listPlaces)
		r.Get("/places/nearby", s.nearbyPlaces)
	})

	return r
}
