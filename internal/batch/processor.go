// Package batch fans a set of queries out across providers with bounded
// concurrency. Queries are grouped by their routed provider as a locality
// optimization; the concurrency limit applies per group.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sawpanic/marketgate/internal/errs"
	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/provider"
	"github.com/sawpanic/marketgate/internal/resilience"
	"github.com/sawpanic/marketgate/internal/router"
)

// Request describes one batch of queries
type Request struct {
	Queries         []models.DataQuery `json:"queries"`
	ConcurrentLimit int                `json:"concurrent_limit"`
	Timeout         time.Duration      `json:"timeout"`
	RetryCount      int                `json:"retry_count"`
	RetryDelay      time.Duration      `json:"retry_delay"`
}

// DefaultRequest returns a Request with standard limits and no queries
func DefaultRequest() Request {
	return Request{
		ConcurrentLimit: 10,
		Timeout:         30 * time.Second,
		RetryCount:      3,
		RetryDelay:      time.Second,
	}
}

// Result aggregates a batch's outcome. Result keys are
// "<providerName>_<indexInGroup>"; callers re-associate responses with
// queries through ProcessedQueries order. Unroutable queries appear only
// in Errors, keyed "unrouted_<originalIndex>".
type Result struct {
	Results          map[string]*models.DataResponse `json:"results"`
	SuccessCount     int                             `json:"success_count"`
	FailureCount     int                             `json:"failure_count"`
	TotalTimeSeconds float64                         `json:"total_time_seconds"`
	Errors           map[string]string               `json:"errors"`
	ProcessedQueries []models.DataQuery              `json:"processed_queries"`
}

// Processor executes batches through the router and resilient executor
type Processor struct {
	router   *router.Router
	executor *resilience.Executor
	logger   zerolog.Logger
}

// NewProcessor creates a batch processor
func NewProcessor(rt *router.Router, executor *resilience.Executor, logger zerolog.Logger) *Processor {
	return &Processor{
		router:   rt,
		executor: executor,
		logger:   logger.With().Str("component", "batch").Logger(),
	}
}

type groupedQuery struct {
	query      models.DataQuery
	indexInGrp int
}

// Process runs the whole batch: route and group, then one goroutine pool
// per provider group with ConcurrentLimit in-flight calls each. Every
// query gets a per-call timeout and exponential-backoff retries; terminal
// failures yield an empty response carrying the error in metadata.
func (p *Processor) Process(ctx context.Context, req Request) *Result {
	start := time.Now()

	if req.ConcurrentLimit <= 0 {
		req.ConcurrentLimit = 10
	}
	if req.Timeout <= 0 {
		req.Timeout = 30 * time.Second
	}
	if req.RetryDelay <= 0 {
		req.RetryDelay = time.Second
	}

	result := &Result{
		Results: make(map[string]*models.DataResponse),
		Errors:  make(map[string]string),
	}
	var mu sync.Mutex

	groups := make(map[string][]groupedQuery)
	providers := make(map[string]provider.Provider)
	for i, query := range req.Queries {
		prov, err := p.router.Route(query)
		if err != nil {
			key := fmt.Sprintf("unrouted_%d", i)
			result.Errors[key] = err.Error()
			result.FailureCount++
			continue
		}
		name := prov.Name()
		groups[name] = append(groups[name], groupedQuery{query: query, indexInGrp: len(groups[name])})
		providers[name] = prov
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for name, queries := range groups {
		prov := providers[name]
		queries := queries
		eg.Go(func() error {
			p.processGroup(egCtx, prov, queries, req, result, &mu)
			return nil
		})
	}
	eg.Wait()

	result.TotalTimeSeconds = time.Since(start).Seconds()
	p.logger.Info().
		Int("queries", len(req.Queries)).
		Int("success", result.SuccessCount).
		Int("failure", result.FailureCount).
		Float64("seconds", result.TotalTimeSeconds).
		Msg("batch complete")
	return result
}

// processGroup fires one group's queries with a semaphore enforcing the
// per-group concurrency limit.
func (p *Processor) processGroup(ctx context.Context, prov provider.Provider, queries []groupedQuery, req Request, result *Result, mu *sync.Mutex) {
	sem := semaphore.NewWeighted(int64(req.ConcurrentLimit))
	var wg sync.WaitGroup

	for _, gq := range queries {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch cancelled while waiting; report remaining queries
			mu.Lock()
			key := fmt.Sprintf("%s_%d", prov.Name(), gq.indexInGrp)
			result.Errors[key] = err.Error()
			result.FailureCount++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(gq groupedQuery) {
			defer wg.Done()
			defer sem.Release(1)

			key := fmt.Sprintf("%s_%d", prov.Name(), gq.indexInGrp)
			resp, err := p.callWithRetry(ctx, prov, gq.query, req)

			mu.Lock()
			defer mu.Unlock()
			result.ProcessedQueries = append(result.ProcessedQueries, gq.query)
			if err != nil {
				result.Errors[key] = err.Error()
				result.FailureCount++
				result.Results[key] = emptyResponse(gq.query, prov.Name(), err)
				return
			}
			result.SuccessCount++
			result.Results[key] = resp
		}(gq)
	}

	wg.Wait()
}

// callWithRetry runs one query with the batch's per-call timeout and up to
// RetryCount retries backed off at retryDelay·2^attempt.
func (p *Processor) callWithRetry(ctx context.Context, prov provider.Provider, query models.DataQuery, req Request) (*models.DataResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= req.RetryCount; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, req.Timeout)
		start := time.Now()
		resp, err := p.executor.Execute(callCtx, prov, query)
		cancel()

		latencyMs := float64(time.Since(start).Microseconds()) / 1000
		if err == nil {
			p.router.RecordSuccess(prov.Name(), latencyMs)
			return resp, nil
		}

		// Caller cancellation carries no provider penalty
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindTimeout, ctx.Err(), "batch cancelled")
		}
		p.router.RecordFailure(prov.Name())
		lastErr = err

		if !errs.Retryable(err) || attempt == req.RetryCount {
			break
		}

		delay := req.RetryDelay * (1 << attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errs.Wrap(errs.KindTimeout, ctx.Err(), "batch cancelled during backoff")
		}
	}

	return nil, lastErr
}

// emptyResponse is the placeholder returned for a terminally failed query
func emptyResponse(query models.DataQuery, providerName string, err error) *models.DataResponse {
	return &models.DataResponse{
		Data: []models.DataPoint{},
		Metadata: models.ResponseMetadata{
			RecordCount: 0,
			DataSource:  providerName,
			Warnings:    []string{err.Error()},
		},
		Provider: models.ProviderInfo{Name: providerName},
		Query:    query,
	}
}
