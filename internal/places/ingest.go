package places

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/pkg/geocode"
	"github.com/aptscout/aptscout/pkg/google"
)

// IngestOptions describes one ingestion run.
type IngestOptions struct {
	Location     string
	RadiusMeters int
	Type         string
	GridSize     int
	GridSpread   float64
	MaxPages     int
}

// Run defaults for unset IngestOptions fields.
const (
	DefaultRadiusMeters = 1000
	DefaultMaxPages     = 3
)

// Delays are the fixed pauses between API calls.
type Delays struct {
	Place     time.Duration
	Cell      time.Duration
	PageToken time.Duration
}

// DefaultDelays matches the Places API quota guidance for a single key.
func DefaultDelays() Delays {
	return Delays{
		Place:     200 * time.Millisecond,
		Cell:      time.Second,
		PageToken: 2 * time.Second,
	}
}

// RunResult summarizes an ingestion run.
type RunResult struct {
	Center          LatLng        `json:"center"`
	GridPoints      int           `json:"grid_points"`
	TypesProcessed  int           `json:"types_processed"`
	TypesFailed     int           `json:"types_failed"`
	CellsSearched   int           `json:"cells_searched"`
	CellsFailed     int           `json:"cells_failed"`
	PagesFetched    int           `json:"pages_fetched"`
	PlacesAdded     int           `json:"places_added"`
	PlacesFailed    int           `json:"places_failed"`
	RelationsFailed int           `json:"relations_failed"`
	Duration        time.Duration `json:"duration"`
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Ingester runs the grid search and persists what it finds.
type Ingester struct {
	store    Store
	places   google.Client
	geocoder geocode.Client
	delays   Delays
	sleep    SleepFunc
	log      *zap.Logger
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithDelays overrides DefaultDelays.
func WithDelays(d Delays) IngesterOption {
	return func(in *Ingester) { in.delays = d }
}

// WithSleep replaces the context-aware sleep, mainly for tests.
func WithSleep(fn SleepFunc) IngesterOption {
	return func(in *Ingester) { in.sleep = fn }
}

// NewIngester wires an Ingester.
func NewIngester(store Store, places google.Client, geocoder geocode.Client, opts ...IngesterOption) *Ingester {
	in := &Ingester{
		store:    store,
		places:   places,
		geocoder: geocoder,
		delays:   DefaultDelays(),
		sleep:    sleepCtx,
		log:      zap.L().With(zap.String("component", "places.ingest")),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Run executes the pipeline. Only an unresolvable location or a canceled
// context stops it early; every other failure is logged and counted.
func (in *Ingester) Run(ctx context.Context, opts IngestOptions) (*RunResult, error) {
	start := time.Now()

	types, err := ExpandTypes(opts.Type)
	if err != nil {
		return nil, err
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultRadiusMeters
	}
	if opts.GridSize <= 0 {
		opts.GridSize = DefaultGridSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	center, err := ResolveCenter(ctx, opts.Location, in.geocoder)
	if err != nil {
		return nil, err
	}

	grid := GenerateGrid(center, opts.GridSize, opts.GridSpread)
	res := &RunResult{Center: center, GridPoints: len(grid)}

	fields := []zap.Field{
		zap.Float64("lat", center.Lat),
		zap.Float64("lng", center.Lng),
		zap.Int("grid_points", len(grid)),
		zap.Int("radius_m", opts.RadiusMeters),
		zap.Strings("types", types),
	}
	if b := GridBounds(grid); b != nil {
		fields = append(fields,
			zap.Float64s("bounds_min", []float64{b.Min(0), b.Min(1)}),
			zap.Float64s("bounds_max", []float64{b.Max(0), b.Max(1)}),
		)
	}
	in.log.Info("starting place ingestion", fields...)

	for _, typ := range types {
		if err := in.runType(ctx, typ, grid, opts, res); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
	}

	res.Duration = time.Since(start)
	in.log.Info("place ingestion complete",
		zap.Int("places_added", res.PlacesAdded),
		zap.Int("places_failed", res.PlacesFailed),
		zap.Int("cells_failed", res.CellsFailed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// runType ingests one place type across the grid. It returns an error only
// when ctx is done.
func (in *Ingester) runType(ctx context.Context, typ string, grid []LatLng, opts IngestOptions, res *RunResult) error {
	log := in.log.With(zap.String("type", typ))

	typeID, err := in.store.UpsertPlaceType(ctx, typ)
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "places: ingest canceled")
		}
		log.Error("failed to get/create place type", zap.Error(err))
		res.TypesFailed++
		return nil
	}
	res.TypesProcessed++

	for i, point := range grid {
		cellLog := log.With(zap.Int("cell", i), zap.Float64("lat", point.Lat), zap.Float64("lng", point.Lng))
		if err := in.searchCell(ctx, cellLog, typ, typeID, point, opts, res); err != nil {
			return err
		}
		if err := in.sleep(ctx, in.delays.Cell); err != nil {
			return eris.Wrap(err, "places: ingest canceled")
		}
	}
	return nil
}

func (in *Ingester) searchCell(ctx context.Context, log *zap.Logger, typ string, typeID int64, point LatLng, opts IngestOptions, res *RunResult) error {
	token := ""
	for page := 0; page < opts.MaxPages; page++ {
		if token != "" {
			if err := in.sleep(ctx, in.delays.PageToken); err != nil {
				return eris.Wrap(err, "places: ingest canceled")
			}
		}

		resp, err := in.places.NearbySearch(ctx, google.NearbyRequest{
			Location:  google.LatLng{Lat: point.Lat, Lng: point.Lng},
			Radius:    opts.RadiusMeters,
			Type:      typ,
			PageToken: token,
		})
		if err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "places: ingest canceled")
			}
			if page == 0 {
				log.Error("nearby search failed", zap.Error(err))
				res.CellsFailed++
			} else {
				log.Warn("nearby search page failed", zap.Int("page", page+1), zap.Error(err))
			}
			return nil
		}
		if page == 0 {
			res.CellsSearched++
		}
		res.PagesFetched++
		log.Debug("nearby search page", zap.Int("page", page+1), zap.Int("results", len(resp.Results)))

		for _, r := range resp.Results {
			if err := in.ingestPlace(ctx, log, typeID, r, res); err != nil {
				return err
			}
		}

		token = resp.NextPageToken
		if token == "" {
			break
		}
	}
	return nil
}

func (in *Ingester) ingestPlace(ctx context.Context, log *zap.Logger, typeID int64, r google.NearbyResult, res *RunResult) error {
	log = log.With(zap.String("place_id", r.PlaceID))

	details, err := in.places.PlaceDetails(ctx, r.PlaceID, google.DefaultDetailFields)
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "places: ingest canceled")
		}
		log.Error("failed to fetch place details", zap.Error(err))
		res.PlacesFailed++
		return nil
	}

	p := placeFromDetails(r, details)
	id, err := in.store.UpsertPlace(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "places: ingest canceled")
		}
		log.Error("failed to upsert place", zap.Error(err))
		res.PlacesFailed++
		return nil
	}

	if err := in.store.LinkPlaceType(ctx, id, typeID); err != nil {
		log.Error("failed to link place type", zap.Error(err))
		res.RelationsFailed++
	}

	res.PlacesAdded++
	log.Info("added place", zap.String("name", p.Name))

	if err := in.sleep(ctx, in.delays.Place); err != nil {
		return eris.Wrap(err, "places: ingest canceled")
	}
	return nil
}

// placeFromDetails maps a details response onto a Place, falling back to
// the search summary for name and location.
func placeFromDetails(r google.NearbyResult, d *google.PlaceDetails) *Place {
	p := &Place{
		PlaceID:      r.PlaceID,
		Name:         d.Name,
		Address:      d.FormattedAddress,
		Latitude:     d.Geometry.Location.Lat,
		Longitude:    d.Geometry.Location.Lng,
		Phone:        nonEmpty(d.PhoneNumber),
		Website:      nonEmpty(d.Website),
		Rating:       d.Rating,
		ReviewCount:  d.UserRatingsTotal,
		OpeningHours: d.OpeningHours,
		RawData:      d.Raw,
	}
	if p.Name == "" {
		p.Name = r.Name
	}
	if p.Latitude == 0 && p.Longitude == 0 {
		p.Latitude = r.Geometry.Location.Lat
		p.Longitude = r.Geometry.Location.Lng
	}
	return p
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
