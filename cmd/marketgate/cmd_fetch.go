package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sawpanic/marketgate/internal/facade"
)

func newFetchCmd() *cobra.Command {
	var (
		asset     string
		market    string
		symbols   []string
		timeframe string
		start     string
		end       string
		provider  string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch bars for one query and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			run, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer run.close()

			builder := facade.NewQuery(asset).
				Market(market).
				Symbols(symbols...).
				Timeframe(timeframe).
				Range(start, end)
			if provider != "" {
				builder.Provider(provider)
			}
			if limit > 0 {
				builder.Limit(limit)
			}
			query, err := builder.Build()
			if err != nil {
				return err
			}

			resp, err := run.client.Execute(ctx, query)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&asset, "asset", "stock", "asset kind (stock, crypto, fund, index, futures, forex)")
	cmd.Flags().StringVar(&market, "market", "us", "market (cn, us, hk, crypto, global)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to fetch")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1d", "bar size (tick, 1m, 5m, 15m, 30m, 1h, 1d, 1w, 1M)")
	cmd.Flags().StringVar(&start, "start", "", "range start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "range end (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&provider, "provider", "", "pin the query to one provider")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of returned bars")
	cmd.MarkFlagRequired("symbols")

	return cmd
}
