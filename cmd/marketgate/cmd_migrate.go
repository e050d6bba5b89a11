package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/marketgate/internal/config"
	"github.com/sawpanic/marketgate/internal/persistence/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is not configured")
			}

			db, err := postgres.Connect(ctx, postgres.Config{
				DSN:          cfg.Database.DSN,
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				QueryTimeout: time.Duration(cfg.Database.QueryTimeoutSec) * time.Second,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
	return cmd
}
