package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCacheSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache-sweep",
		Short: "Remove expired entries from the persistent cache tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			run, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer run.close()

			if run.tiered == nil {
				return fmt.Errorf("cache is disabled in configuration")
			}

			removed, err := run.tiered.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			log.Info().Int64("removed", removed).Msg("cache sweep complete")
			return nil
		},
	}
	return cmd
}
