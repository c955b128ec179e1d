package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aptscout/aptscout/internal/config"
	"github.com/aptscout/aptscout/internal/listing"
	"github.com/aptscout/aptscout/internal/places"
	"github.com/aptscout/aptscout/internal/search"
	"github.com/aptscout/aptscout/pkg/anthropic"
	"github.com/aptscout/aptscout/pkg/gemini"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a natural-language search",
	Long:  `Asks the configured language model to turn a query such as "2 bedrooms under 1500 near bars" into filters and prints the matching apartment and place ids as JSON.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("search"); err != nil {
			return err
		}

		parser, err := newParser(ctx, cfg)
		if err != nil {
			return err
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := search.NewService(places.NewPostgresStore(pool), listing.NewPostgresStore(pool), parser)
		res, err := svc.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return eris.Wrap(err, "search")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// newParser builds the query parser for the configured provider.
func newParser(ctx context.Context, c *config.Config) (search.Parser, error) {
	switch c.Search.Provider {
	case "", "anthropic":
		return search.NewAnthropicParser(anthropic.NewClient(c.Anthropic.Key), search.ModelParams{
			Model:       c.Anthropic.Model,
			MaxTokens:   c.Search.MaxTokens,
			Temperature: c.Search.Temperature,
		}), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, c.Gemini.Key)
		if err != nil {
			return nil, eris.Wrap(err, "search: gemini client")
		}
		return search.NewGeminiParser(client, search.ModelParams{
			Model:       c.Gemini.Model,
			MaxTokens:   c.Search.MaxTokens,
			Temperature: c.Search.Temperature,
		}), nil
	default:
		return nil, eris.Errorf("search: unknown provider %q", c.Search.Provider)
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
