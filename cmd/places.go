package main

import (
	"github.com/spf13/cobra"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Ingest and inspect points of interest",
	Long:  "Commands for fetching bars and restaurants from Google Places into the backend, listing them, and mirroring them into Elasticsearch.",
}

func init() {
	rootCmd.AddCommand(placesCmd)
}
