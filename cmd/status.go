package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geoingest/internal/sink"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show destination collections, document counts, and indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		snk, err := sink.NewMongo(ctx, sink.MongoOptions{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: time.Duration(cfg.Mongo.ConnectTimeoutSecs) * time.Second,
			WriteTimeout:   time.Duration(cfg.Mongo.WriteTimeoutSecs) * time.Second,
		})
		if err != nil {
			return eris.Wrap(err, "status: connect")
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = snk.Close(closeCtx)
		}()

		collection, _ := cmd.Flags().GetString("collection")

		infos, err := snk.Collections(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if collection != "" {
			filtered := infos[:0]
			for _, info := range infos {
				if info.Name == collection {
					filtered = append(filtered, info)
				}
			}
			infos = filtered
		}

		if len(infos) == 0 {
			fmt.Println("No collections found")
			return nil
		}

		fmt.Printf("%-30s %12s  %s\n", "Collection", "Documents", "Indexes")
		fmt.Println(strings.Repeat("-", 70))
		for _, info := range infos {
			fmt.Printf("%-30s %12d  %s\n", info.Name, info.Documents, strings.Join(info.Indexes, ", "))
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().String("collection", "", "restrict to a single collection")
	rootCmd.AddCommand(statusCmd)
}
