package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoingest/internal/ingest"
	"github.com/sells-group/geoingest/internal/sink"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a geospatial dataset into a MongoDB collection",
	Long: `Streams records from a CSV, GeoJSON, NDJSON, WKT-column, or shapefile input,
normalizes attribute keys, decodes and reprojects geometries, and upserts the
resulting documents by natural key. Re-running the same file against the same
collection leaves the document count unchanged.

Records that fail geometry decoding or reprojection are skipped and counted;
the run only aborts on input-level or database connectivity errors.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		collection, _ := cmd.Flags().GetString("collection")
		format, _ := cmd.Flags().GetString("format")
		dataset, _ := cmd.Flags().GetString("dataset")
		lonField, _ := cmd.Flags().GetString("lon-field")
		latField, _ := cmd.Flags().GetString("lat-field")
		wktField, _ := cmd.Flags().GetString("wkt-field")
		sourceCRS, _ := cmd.Flags().GetString("source-crs")
		targetCRS, _ := cmd.Flags().GetString("target-crs")
		keyFieldsStr, _ := cmd.Flags().GetString("key-fields")
		normalizeKeys, _ := cmd.Flags().GetBool("normalize-keys")
		createIndex, _ := cmd.Flags().GetBool("create-index")
		drop, _ := cmd.Flags().GetBool("drop")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if targetCRS == "" {
			targetCRS = cfg.Load.TargetCRS
		}
		if batchSize == 0 {
			batchSize = cfg.Load.BatchSize
		}
		if concurrency == 0 {
			concurrency = cfg.Load.Concurrency
		}

		opts := ingest.Options{
			File:           file,
			Format:         ingest.Format(format),
			Dataset:        dataset,
			Collection:     collection,
			SourceCRS:      sourceCRS,
			TargetCRS:      targetCRS,
			LonField:       lonField,
			LatField:       latField,
			WKTField:       wktField,
			NormalizeKeys:  normalizeKeys,
			CreateIndex:    createIndex,
			Drop:           drop,
			DryRun:         dryRun,
			BatchSize:      batchSize,
			Concurrency:    concurrency,
			MaxDiagnostics: cfg.Load.MaxDiagnostics,
		}
		if keyFieldsStr != "" {
			opts.KeyFields = splitAndTrim(keyFieldsStr)
		}

		log := zap.L().With(zap.String("command", "load"))
		log.Info("starting ingestion",
			zap.String("file", file),
			zap.String("collection", collection),
			zap.String("source_crs", sourceCRS),
			zap.String("target_crs", targetCRS),
			zap.Bool("dry_run", dryRun),
			zap.Int("batch_size", batchSize),
			zap.Int("concurrency", concurrency),
		)

		snk, err := sink.NewMongo(ctx, sink.MongoOptions{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: time.Duration(cfg.Mongo.ConnectTimeoutSecs) * time.Second,
			WriteTimeout:   time.Duration(cfg.Mongo.WriteTimeoutSecs) * time.Second,
			WriteRate:      cfg.Load.WriteRate,
		})
		if err != nil {
			return eris.Wrap(err, "load: connect")
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = snk.Close(closeCtx)
		}()

		report, err := ingest.Run(ctx, snk, opts)
		if report != nil {
			printReport(report)
		}
		if err != nil {
			return eris.Wrap(err, "load")
		}

		return nil
	},
}

func init() {
	loadCmd.Flags().String("file", "", "input file path (.csv, .geojson, .json, .ndjson, .shp; .gz accepted)")
	loadCmd.Flags().String("collection", "", "destination collection name")
	loadCmd.Flags().String("format", "", "input format override: csv, geojson, ndjson, or shp (default: from extension)")
	loadCmd.Flags().String("dataset", "", "dataset name recorded in source metadata (default: file basename)")
	loadCmd.Flags().String("lon-field", "", "CSV column holding longitude / easting")
	loadCmd.Flags().String("lat-field", "", "CSV column holding latitude / northing")
	loadCmd.Flags().String("wkt-field", "", "CSV column holding WKT geometry text")
	loadCmd.Flags().String("source-crs", "", "source CRS, e.g. EPSG:2263 (default: EPSG:4326)")
	loadCmd.Flags().String("target-crs", "", "target CRS (default: from config or EPSG:4326)")
	loadCmd.Flags().String("key-fields", "", "comma-separated fields forming the natural key (default: content hash)")
	loadCmd.Flags().Bool("normalize-keys", true, "normalize attribute keys to snake_case")
	loadCmd.Flags().Bool("create-index", false, "create a 2dsphere index on geometry after loading")
	loadCmd.Flags().Bool("drop", false, "drop the destination collection before loading")
	loadCmd.Flags().Bool("dry-run", false, "decode and reproject without writing to the database")
	loadCmd.Flags().Int("batch-size", 0, "documents per bulk write (default: from config or 2000)")
	loadCmd.Flags().Int("concurrency", 0, "parallel decode workers (default: from config or 4)")
	_ = loadCmd.MarkFlagRequired("file")
	_ = loadCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(loadCmd)
}

// printReport writes the run summary and any per-stage diagnostic examples.
func printReport(r *ingest.Report) {
	fmt.Printf("processed:      %d\n", r.Processed)
	fmt.Printf("skipped:        %d\n", r.Skipped)
	fmt.Printf("load failed:    %d\n", r.LoadFailed)
	fmt.Printf("key collisions: %d\n", r.KeyCollisions)
	fmt.Printf("upserted:       %d\n", r.Upserted)
	fmt.Printf("matched:        %d\n", r.Matched)
	fmt.Printf("duration:       %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Examples) == 0 {
		return
	}

	stages := make([]string, 0, len(r.Examples))
	for stage := range r.Examples {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	fmt.Println("\ndiagnostics:")
	for _, stage := range stages {
		for _, d := range r.Examples[stage] {
			fmt.Printf("  record %d [%s]: %s\n", d.Record, stage, d.Reason)
		}
	}
}

// splitAndTrim splits a comma-separated flag value, dropping empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
