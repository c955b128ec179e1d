package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/placeindex"
	"github.com/aptscout/aptscout/internal/places"
)

const indexBatchSize = 500

// placeIndexer is the part of placeindex.Index the copy loop uses.
type placeIndexer interface {
	IndexPlaces(ctx context.Context, ps []places.Place) (int, error)
}

var placesIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Copy the places table into Elasticsearch",
	Long:  "Creates the Elasticsearch places index with a geo_point mapping if needed and bulk-indexes every stored place. Re-running overwrites documents by id.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("elastic"); err != nil {
			return err
		}

		ix, err := placeindex.New(cfg.Elastic.URL, cfg.Elastic.Index, cfg.Elastic.Sniff)
		if err != nil {
			return err
		}
		if err := ix.EnsureIndex(ctx); err != nil {
			return err
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		read, indexed, err := copyPlaces(ctx, places.NewPostgresStore(pool), ix, indexBatchSize)
		if err != nil {
			return eris.Wrap(err, "places index")
		}

		fmt.Fprintf(os.Stdout, "Indexed %d of %d places into %q\n", indexed, read, cfg.Elastic.Index)
		return nil
	},
}

// copyPlaces pages through the store and indexes each page.
func copyPlaces(ctx context.Context, src places.Store, dst placeIndexer, batch int) (read, indexed int, err error) {
	for offset := 0; ; offset += batch {
		ps, err := src.ListPlaces(ctx, places.ListOpts{Limit: batch, Offset: offset})
		if err != nil {
			return read, indexed, err
		}
		if len(ps) == 0 {
			return read, indexed, nil
		}
		read += len(ps)

		n, err := dst.IndexPlaces(ctx, ps)
		if err != nil {
			return read, indexed, err
		}
		indexed += n
		zap.L().Debug("indexed batch", zap.Int("offset", offset), zap.Int("read", len(ps)), zap.Int("indexed", n))

		if len(ps) < batch {
			return read, indexed, nil
		}
	}
}

func init() {
	placesCmd.AddCommand(placesIndexCmd)
}
