package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe every registered provider once and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			run, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer run.close()

			run.checker.ProbeAll(ctx)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run.registry.HealthSnapshot())
		},
	}
	return cmd
}
