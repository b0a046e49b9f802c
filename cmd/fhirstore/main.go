// Command fhirstore provides operational tooling for a FHIR store
// deployment.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fhirstack/fhirstore/internal/config"
	"github.com/fhirstack/fhirstore/storage/mongo"
)

func main() {
	root := &cobra.Command{
		Use:           "fhirstore",
		Short:         "Operational tooling for a FHIR store deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(indexesCmd())

	if err := root.Execute(); err != nil {
		logger := newLogger("info")
		logger.Fatal().Err(err).Msg("command failed")
	}
}

func indexesCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Provision the indexes the repository relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := driver.Connect(ctx, options.Client().ApplyURI(cfg.DBURL))
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("disconnect failed")
				}
			}()

			store := mongo.New(client, cfg.DBName)
			if err := store.EnsureIndexes(ctx); err != nil {
				return err
			}

			logger.Info().Str("database", cfg.DBName).Msg("indexes provisioned")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall operation timeout")
	return cmd
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
