package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/marketgate/internal/batch"
	"github.com/sawpanic/marketgate/internal/facade"
	"github.com/sawpanic/marketgate/internal/models"
)

// batchQuerySpec is one line of the batch input file
type batchQuerySpec struct {
	Asset     string   `json:"asset"`
	Market    string   `json:"market"`
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
	Provider  string   `json:"provider,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

func newBatchCmd() *cobra.Command {
	var (
		file        string
		concurrency int
		timeoutSec  int
		retries     int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a batch of queries from a JSON file",
		Long: `batch reads a JSON array of query specs and fans them out across
providers with bounded concurrency. Each spec mirrors the fetch flags:

  [{"asset": "stock", "market": "us", "symbols": ["AAPL"], "timeframe": "1d"}]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read batch file %s: %w", file, err)
			}
			var specs []batchQuerySpec
			if err := json.Unmarshal(raw, &specs); err != nil {
				return fmt.Errorf("failed to parse batch file %s: %w", file, err)
			}
			if len(specs) == 0 {
				return fmt.Errorf("batch file %s contains no queries", file)
			}

			queries := make([]models.DataQuery, 0, len(specs))
			for i, spec := range specs {
				builder := facade.NewQuery(spec.Asset).
					Market(spec.Market).
					Symbols(spec.Symbols...).
					Timeframe(spec.Timeframe).
					Range(spec.Start, spec.End)
				if spec.Provider != "" {
					builder.Provider(spec.Provider)
				}
				if spec.Limit > 0 {
					builder.Limit(spec.Limit)
				}
				query, err := builder.Build()
				if err != nil {
					return fmt.Errorf("query %d invalid: %w", i, err)
				}
				queries = append(queries, query)
			}

			run, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer run.close()

			req := batch.DefaultRequest()
			req.Queries = queries
			if concurrency > 0 {
				req.ConcurrentLimit = concurrency
			} else {
				req.ConcurrentLimit = run.cfg.Batch.DefaultConcurrency
			}
			if timeoutSec > 0 {
				req.Timeout = time.Duration(timeoutSec) * time.Second
			}
			if retries >= 0 {
				req.RetryCount = retries
			}

			result := run.client.Batch(ctx, req)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to JSON batch file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "in-flight calls per provider group")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "per-query timeout in seconds")
	cmd.Flags().IntVar(&retries, "retries", 3, "retries per query")
	cmd.MarkFlagRequired("file")

	return cmd
}
