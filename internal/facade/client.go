// Package facade is the caller-facing surface: one Client wires the
// router, resilience layer, cache, ingestion scoring and repository into
// the per-query pipeline. This is what a thin SDK or RPC gateway exposes.
package facade

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/marketgate/internal/batch"
	"github.com/sawpanic/marketgate/internal/cache"
	"github.com/sawpanic/marketgate/internal/errs"
	"github.com/sawpanic/marketgate/internal/ingest"
	"github.com/sawpanic/marketgate/internal/metrics"
	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
	"github.com/sawpanic/marketgate/internal/provider"
	"github.com/sawpanic/marketgate/internal/resilience"
	"github.com/sawpanic/marketgate/internal/router"
)

// Client is the unified query surface over all registered providers
type Client struct {
	registry  *provider.Registry
	router    *router.Router
	executor  *resilience.Executor
	cache     *cache.TieredCache
	repo      *persistence.Repository
	scorer    *ingest.Scorer
	batchProc *batch.Processor
	metrics   *metrics.Registry
	timeout   time.Duration
	logger    zerolog.Logger
}

// Options configures optional collaborators. Cache, repository and
// metrics are all optional: a nil cache disables caching, a nil
// repository disables persistence.
type Options struct {
	Cache      *cache.TieredCache
	Repository *persistence.Repository
	Metrics    *metrics.Registry
	Timeout    time.Duration
}

// NewClient wires the query pipeline
func NewClient(registry *provider.Registry, rt *router.Router, executor *resilience.Executor, opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		registry:  registry,
		router:    rt,
		executor:  executor,
		cache:     opts.Cache,
		repo:      opts.Repository,
		scorer:    ingest.NewScorer(ingest.DefaultScoreWeights()),
		batchProc: batch.NewProcessor(rt, executor, logger),
		metrics:   opts.Metrics,
		timeout:   timeout,
		logger:    logger.With().Str("component", "facade").Logger(),
	}
}

// Get serves one query through the full pipeline: cache lookup, routing,
// resilient provider call, quality scoring, cache write, repository
// write. Cache and repository faults never fail a successful fetch; they
// surface as metadata warnings.
func (c *Client) Get(ctx context.Context, query models.DataQuery) (*models.DataResponse, error) {
	return c.get(ctx, ctx, query)
}

// Execute is the deadline variant of Get: the client's configured
// per-call timeout is attached before dispatch. The caller's own context
// is kept alongside so an expiry of the configured deadline still counts
// against the provider while caller cancellation does not.
func (c *Client) Execute(ctx context.Context, query models.DataQuery) (*models.DataResponse, error) {
	timed, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.get(timed, ctx, query)
}

func (c *Client) get(ctx, caller context.Context, query models.DataQuery) (*models.DataResponse, error) {
	start := time.Now()

	if err := validateQuery(query); err != nil {
		return nil, err
	}

	if resp, ok := c.cacheGet(ctx, query); ok {
		resp.Metadata.CacheHit = true
		resp.Metadata.ExecutionTimeMs = elapsedMs(start)
		return resp, nil
	}

	prov, err := c.router.Route(query)
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.ProviderRequests.WithLabelValues(prov.Name()).Inc()
	}

	resp, err := c.executor.Execute(ctx, prov, query)
	latencyMs := elapsedMs(start)
	if err != nil {
		// Only caller-initiated cancellation escapes the score penalty;
		// an expiry of the client's own deadline is a provider failure.
		if caller.Err() == nil {
			c.router.RecordFailure(prov.Name())
		}
		if c.metrics != nil {
			c.metrics.ProviderFailures.WithLabelValues(prov.Name(), string(errs.KindOf(err))).Inc()
		}
		return nil, err
	}
	c.router.RecordSuccess(prov.Name(), latencyMs)
	if c.metrics != nil {
		c.metrics.ProviderLatency.WithLabelValues(prov.Name()).Observe(latencyMs / 1000)
	}

	c.finalize(ctx, query, prov, resp)
	resp.Metadata.ExecutionTimeMs = elapsedMs(start)
	return resp, nil
}

// Realtime returns the current quote for one symbol from the first
// realtime-capable provider that admits the query.
func (c *Client) Realtime(ctx context.Context, asset models.AssetKind, market models.Market, symbol string) (map[string]interface{}, error) {
	query := models.DataQuery{AssetKind: asset, Market: market, Symbols: []string{symbol}}
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	var prov provider.Provider
	for _, p := range c.registry.FindCapable(query) {
		if p.Capability().SupportsRealtime {
			prov = p
			break
		}
	}
	if prov == nil {
		return nil, errs.New(errs.KindNoCapableProvider, "no realtime provider for %s on %s", symbol, market)
	}

	return c.executor.Quote(ctx, prov, symbol, market)
}

// Stream yields the points Get would return as a lazy finite sequence.
// Cancel ctx to stop consuming early.
func (c *Client) Stream(ctx context.Context, query models.DataQuery) (<-chan models.DataPoint, error) {
	resp, err := c.Get(ctx, query)
	if err != nil {
		return nil, err
	}

	ch := make(chan models.DataPoint)
	go func() {
		defer close(ch)
		for _, dp := range resp.Data {
			select {
			case ch <- dp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Batch fans the request out through the batch processor
func (c *Client) Batch(ctx context.Context, req batch.Request) *batch.Result {
	start := time.Now()
	result := c.batchProc.Process(ctx, req)
	if c.metrics != nil {
		c.metrics.BatchDuration.Observe(time.Since(start).Seconds())
		c.metrics.BatchQueries.WithLabelValues("success").Add(float64(result.SuccessCount))
		c.metrics.BatchQueries.WithLabelValues("failure").Add(float64(result.FailureCount))
	}
	return result
}

// Registry exposes the provider registry for registration and operations
func (c *Client) Registry() *provider.Registry {
	return c.registry
}

// finalize runs the post-fetch stages: bar validation, quality scoring,
// cache write and repository write. Failures here downgrade to warnings.
func (c *Client) finalize(ctx context.Context, query models.DataQuery, prov provider.Provider, resp *models.DataResponse) {
	now := time.Now()
	for _, dp := range resp.Data {
		if err := dp.Validate(now); err != nil {
			resp.AddWarning("invalid bar: " + err.Error())
		}
	}

	if score := c.scoreResponse(resp); score != nil {
		resp.Metadata.QualityScore = score.Overall
	}
	resp.Metadata.DataSource = prov.Name()
	resp.Metadata.RecordCount = len(resp.Data)
	if resp.Metadata.Warnings == nil {
		resp.Metadata.Warnings = []string{}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, query, resp); err != nil {
			resp.AddWarning("cache write failed: " + err.Error())
		}
	}

	if c.repo != nil && len(resp.Data) > 0 {
		records := toDataRecords(query, resp)
		if err := c.repo.OHLCV.SaveOHLCV(ctx, records); err != nil {
			resp.AddWarning("repository write failed: " + err.Error())
			c.logger.Warn().Err(err).Str("query", query.Canonical()).Msg("repository write failed")
		}
	}
}

// scoreResponse maps response bars onto the ingestion scorer so callers
// see the same quality grading the pipeline produces.
func (c *Client) scoreResponse(resp *models.DataResponse) *ingest.QualityScore {
	if len(resp.Data) == 0 {
		return nil
	}
	raws := make([]ingest.RawRecord, 0, len(resp.Data))
	for i := range resp.Data {
		dp := resp.Data[i]
		raws = append(raws, ingest.RawRecord{
			Symbol:    dp.Symbol,
			Market:    resp.Query.Market,
			Timestamp: dp.Timestamp,
			Open:      &dp.Open,
			High:      &dp.High,
			Low:       &dp.Low,
			Close:     &dp.Close,
			Volume:    &dp.Volume,
		})
	}
	score := c.scorer.Score(raws)
	return &score
}

func (c *Client) cacheGet(ctx context.Context, query models.DataQuery) (*models.DataResponse, bool) {
	if c.cache == nil {
		return nil, false
	}
	resp, ok := c.cache.Get(ctx, query)
	if c.metrics != nil {
		if ok {
			c.metrics.CacheHits.WithLabelValues("tiered").Inc()
		} else {
			c.metrics.CacheMisses.WithLabelValues("tiered").Inc()
		}
	}
	return resp, ok
}

func toDataRecords(query models.DataQuery, resp *models.DataResponse) []persistence.DataRecord {
	records := make([]persistence.DataRecord, 0, len(resp.Data))
	for _, dp := range resp.Data {
		records = append(records, persistence.DataRecord{
			Symbol:    dp.Symbol,
			AssetKind: query.AssetKind,
			Market:    query.Market,
			Timestamp: dp.Timestamp,
			Open:      dp.Open,
			High:      dp.High,
			Low:       dp.Low,
			Close:     dp.Close,
			Volume:    dp.Volume,
			Amount:    dp.Amount,
			Timeframe: query.Timeframe,
			Provider:  dp.Provider,
		})
	}
	return records
}

func validateQuery(query models.DataQuery) error {
	if !query.AssetKind.Valid() {
		return errs.New(errs.KindCapabilityViolation, "invalid asset kind %q", query.AssetKind)
	}
	if query.Market != "" && !query.Market.Valid() {
		return errs.New(errs.KindCapabilityViolation, "invalid market %q", query.Market)
	}
	if query.Timeframe != "" && !query.Timeframe.Valid() {
		return errs.New(errs.KindCapabilityViolation, "invalid timeframe %q", query.Timeframe)
	}
	if query.Start != nil && query.End != nil && query.Start.After(*query.End) {
		return errs.New(errs.KindCapabilityViolation, "start %s after end %s", query.Start, query.End)
	}
	return nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
