package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/config"
	"github.com/aptscout/aptscout/internal/places"
	"github.com/aptscout/aptscout/pkg/geocode"
	"github.com/aptscout/aptscout/pkg/google"
)

var placesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch bars and restaurants around a location",
	Long: `Searches a grid of points around --location with the Google Places API and
upserts every result into the places table. The location is either "lat,lng"
or an address to geocode.`,
	Example: `  aptscout places fetch --location "Austin, TX" --type bar
  aptscout places fetch --location 40.7128,-74.0060 --radius 500 --grid 6`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := fetchOptions(cmd, cfg)
		if err != nil {
			return err
		}
		if err := cfg.Validate("places"); err != nil {
			return err
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		var geocoder geocode.Client = geocode.NewGoogle(cfg.Google.Key,
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithRateLimit(cfg.Google.RateLimit),
		)
		if cfg.Geocode.CachePath != "" {
			cached, err := geocode.NewCached(ctx, geocoder, cfg.Geocode.CachePath)
			if err != nil {
				return err
			}
			defer cached.Close() //nolint:errcheck
			geocoder = cached
		}

		placesClient := google.NewClient(cfg.Google.Key,
			google.WithBaseURL(cfg.Google.BaseURL),
			google.WithRateLimit(cfg.Google.RateLimit),
		)

		ingester := places.NewIngester(places.NewPostgresStore(pool), placesClient, geocoder,
			places.WithDelays(places.Delays{
				Place:     cfg.Places.PlaceDelay(),
				Cell:      cfg.Places.CellDelay(),
				PageToken: cfg.Places.PageTokenWait(),
			}),
		)

		res, err := ingester.Run(ctx, opts)
		if res != nil {
			formatRunResult(os.Stdout, res)
		}
		if err != nil {
			return eris.Wrap(err, "places fetch")
		}
		zap.L().Info("places fetch finished", zap.Int("places_added", res.PlacesAdded))
		return nil
	},
}

// fetchOptions merges command flags over the places config section.
func fetchOptions(cmd *cobra.Command, c *config.Config) (places.IngestOptions, error) {
	location, _ := cmd.Flags().GetString("location")
	if location == "" {
		return places.IngestOptions{}, eris.New("places fetch: --location is required")
	}
	typ, _ := cmd.Flags().GetString("type")
	if _, err := places.ExpandTypes(typ); err != nil {
		return places.IngestOptions{}, err
	}

	opts := places.IngestOptions{
		Location:     location,
		Type:         typ,
		RadiusMeters: c.Places.RadiusMeters,
		GridSize:     c.Places.GridSize,
		GridSpread:   c.Places.GridSpread,
		MaxPages:     c.Places.MaxPages,
	}
	if cmd.Flags().Changed("radius") {
		opts.RadiusMeters, _ = cmd.Flags().GetInt("radius")
		c.Places.RadiusMeters = opts.RadiusMeters
	}
	if cmd.Flags().Changed("grid") {
		opts.GridSize, _ = cmd.Flags().GetInt("grid")
		c.Places.GridSize = opts.GridSize
	}
	if cmd.Flags().Changed("spread") {
		opts.GridSpread, _ = cmd.Flags().GetFloat64("spread")
	}
	if cmd.Flags().Changed("pages") {
		opts.MaxPages, _ = cmd.Flags().GetInt("pages")
		c.Places.MaxPages = opts.MaxPages
	}
	return opts, nil
}

func formatRunResult(out io.Writer, r *places.RunResult) {
	_, _ = fmt.Fprintf(out, "Center:           %.6f,%.6f\n", r.Center.Lat, r.Center.Lng)
	_, _ = fmt.Fprintf(out, "Grid points:      %d\n", r.GridPoints)
	_, _ = fmt.Fprintf(out, "Types:            %d processed, %d failed\n", r.TypesProcessed, r.TypesFailed)
	_, _ = fmt.Fprintf(out, "Cells:            %d searched, %d failed\n", r.CellsSearched, r.CellsFailed)
	_, _ = fmt.Fprintf(out, "Pages fetched:    %d\n", r.PagesFetched)
	_, _ = fmt.Fprintf(out, "Places:           %d added, %d failed\n", r.PlacesAdded, r.PlacesFailed)
	_, _ = fmt.Fprintf(out, "Relations failed: %d\n", r.RelationsFailed)
	_, _ = fmt.Fprintf(out, "Duration:         %s\n", r.Duration.Round(time.Millisecond))
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("location", "", `center as "lat,lng" or an address to geocode`)
	cmd.Flags().Int("radius", places.DefaultRadiusMeters, "search radius per grid point in meters")
	cmd.Flags().String("type", places.TypeBoth, "place type: bar, restaurant or both")
	cmd.Flags().Int("grid", places.DefaultGridSize, "grid size (N gives N x N search points)")
	cmd.Flags().Float64("spread", places.DefaultGridSpread, "spacing between grid points in degrees")
	cmd.Flags().Int("pages", places.DefaultMaxPages, "max result pages per grid point (Google returns up to 3)")
}

func init() {
	addFetchFlags(placesFetchCmd)
	placesCmd.AddCommand(placesFetchCmd)
}
