package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sawpanic/marketgate/internal/models"
)

func newQuoteCmd() *cobra.Command {
	var (
		asset  string
		market string
		symbol string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch the current quote for one symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, err := models.ParseAssetKind(asset)
			if err != nil {
				return err
			}
			mkt, err := models.ParseMarket(market)
			if err != nil {
				return err
			}

			run, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer run.close()

			quote, err := run.client.Realtime(ctx, kind, mkt, symbol)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(quote)
		},
	}

	cmd.Flags().StringVar(&asset, "asset", "stock", "asset kind")
	cmd.Flags().StringVar(&market, "market", "us", "market")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to quote")
	cmd.MarkFlagRequired("symbol")
	return cmd
}
