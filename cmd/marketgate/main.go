package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "marketgate"
	version = "v0.4.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Unified market-data access layer",
		Version: version,
		Long: `marketgate presents one query surface over heterogeneous market-data
providers: asset x market x symbols x timeframe x time range. It routes each
query to the best capable provider, applies circuit breaking and retries,
caches responses in two tiers and persists normalized OHLCV records.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newQuoteCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCacheSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
