package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aptscout",
	Short: "Apartment listings with natural-language search and nearby places",
	Long:  "Serves apartment listings from the managed Postgres backend, answers natural-language searches through a language model, and ingests bars and restaurants from Google Places.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
