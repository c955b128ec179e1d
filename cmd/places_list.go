package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aptscout/aptscout/internal/places"
)

var placesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested places",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		typ, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		var types []string
		if typ != "" {
			var err error
			if types, err = places.ExpandTypes(typ); err != nil {
				return err
			}
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		ps, err := places.NewPostgresStore(pool).ListPlaces(ctx, places.ListOpts{
			Types:  types,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "places list")
		}

		if len(ps) == 0 {
			fmt.Fprintln(os.Stderr, "No places found.")
			return nil
		}

		formatPlacesList(os.Stdout, ps)
		return nil
	},
}

// formatPlacesList writes a tabular list of places to out.
func formatPlacesList(out io.Writer, ps []places.Place) {
	title := cases.Title(language.English)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPES\tRATING\tREVIEWS\tLAT,LNG\tADDRESS")
	for _, p := range ps {
		types := make([]string, len(p.Types))
		for i, t := range p.Types {
			types[i] = title.String(t)
		}
		rating := "-"
		if p.Rating != nil {
			rating = fmt.Sprintf("%.1f", *p.Rating)
		}
		reviews := "-"
		if p.ReviewCount != nil {
			reviews = fmt.Sprintf("%d", *p.ReviewCount)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.5f,%.5f\t%s\n",
			p.ID, truncate(p.Name, 40), strings.Join(types, ","), rating, reviews,
			p.Latitude, p.Longitude, truncate(p.Address, 50))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	placesListCmd.Flags().String("type", "", "filter by place type: bar, restaurant or both")
	placesListCmd.Flags().Int("limit", 100, "max number of places to display")
	placesListCmd.Flags().Int("offset", 0, "number of places to skip")
	placesCmd.AddCommand(placesListCmd)
}
