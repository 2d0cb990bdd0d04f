package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoingest/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geoingest",
	Short: "Geospatial dataset ingestion pipeline",
	Long:  "Parses CSV, GeoJSON, NDJSON, WKT-column, and shapefile inputs, reprojects coordinates to a target CRS, and upserts documents into MongoDB with 2dsphere indexing.",
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
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
