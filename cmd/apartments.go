package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aptscout/aptscout/internal/listing"
)

var apartmentsCmd = &cobra.Command{
	Use:   "apartments",
	Short: "Inspect apartment listings",
}

var apartmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List apartments, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		apts, err := listing.NewPostgresStore(pool).List(ctx, listing.Filter{Status: listing.Status(status)})
		if err != nil {
			return eris.Wrap(err, "apartments list")
		}

		if len(apts) == 0 {
			fmt.Fprintln(os.Stderr, "No apartments found.")
			return nil
		}

		formatApartmentsList(os.Stdout, apts)
		return nil
	},
}

// formatApartmentsList writes a tabular list of apartments to out.
func formatApartmentsList(out io.Writer, apts []listing.Apartment) {
	title := cases.Title(language.English)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tPRICE\tBEDS\tBATHS\tSTATUS\tCREATED")
	for _, a := range apts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n",
			a.ID, truncate(a.Title, 40), a.Price, optInt(a.Bedrooms), optInt(a.Bathrooms),
			title.String(string(a.Status)), a.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func init() {
	apartmentsListCmd.Flags().String("status", "", "filter by status (available, rented, sold)")
	apartmentsCmd.AddCommand(apartmentsListCmd)
	rootCmd.AddCommand(apartmentsCmd)
}
