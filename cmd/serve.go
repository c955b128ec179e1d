package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aptscout/aptscout/internal/api"
	"github.com/aptscout/aptscout/internal/config"
	"github.com/aptscout/aptscout/internal/db"
	"github.com/aptscout/aptscout/internal/listing"
	"github.com/aptscout/aptscout/internal/placeindex"
	"github.com/aptscout/aptscout/internal/places"
	"github.com/aptscout/aptscout/internal/search"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("server"); err != nil {
			return err
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		deps, err := buildDeps(ctx, cfg, pool)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return runServer(ctx, srv)
	},
}

// buildDeps wires the stores, the optional place index and the search
// service. Search is left out when no provider key is configured, and the
// search endpoint then reports the backend as unavailable.
func buildDeps(ctx context.Context, c *config.Config, pool db.Pool) (api.Deps, error) {
	placeStore := places.NewPostgresStore(pool)
	apartments := listing.NewPostgresStore(pool)

	deps := api.Deps{
		Apartments:     apartments,
		Places:         placeStore,
		Nearby:         placeStore,
		JWTSecret:      []byte(c.Auth.JWTSecret),
		AllowedOrigins: c.Server.AllowedOrigins,
	}

	if c.Elastic.URL != "" {
		ix, err := placeindex.New(c.Elastic.URL, c.Elastic.Index, c.Elastic.Sniff)
		if err != nil {
			return api.Deps{}, err
		}
		deps.Nearby = ix
		zap.L().Info("nearby queries served from elasticsearch", zap.String("index", c.Elastic.Index))
	}

	if err := c.Validate("search"); err != nil {
		zap.L().Warn("search disabled", zap.Error(err))
		deps.Search = unavailableSearch{}
		return deps, nil
	}
	parser, err := newParser(ctx, c)
	if err != nil {
		return api.Deps{}, err
	}
	deps.Search = search.NewService(placeStore, apartments, parser)
	return deps, nil
}

type unavailableSearch struct{}

func (unavailableSearch) Search(context.Context, string) (*search.Result, error) {
	return nil, search.ErrProviderUnavailable
}

// runServer serves until ctx is canceled, then drains in-flight requests.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
