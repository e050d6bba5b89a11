package provider

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/marketgate/internal/models"
)

// SimProvider serves deterministic random-walk bars. It backs the CLI demo
// mode and the end-to-end tests; no network is involved.
type SimProvider struct {
	name       string
	capability Capability
	seed       int64
	latency    time.Duration
}

// SimOption customizes a SimProvider
type SimOption func(*SimProvider)

// WithSimLatency makes each call sleep to emulate upstream latency
func WithSimLatency(d time.Duration) SimOption {
	return func(s *SimProvider) { s.latency = d }
}

// WithSimSeed fixes the random-walk seed for reproducible bars
func WithSimSeed(seed int64) SimOption {
	return func(s *SimProvider) { s.seed = seed }
}

// NewSimProvider creates a simulated provider with the given capability
func NewSimProvider(name string, capability Capability, opts ...SimOption) *SimProvider {
	s := &SimProvider{
		name:       name,
		capability: capability,
		seed:       42,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SimProvider) Name() string { return s.name }

func (s *SimProvider) Capability() Capability { return s.capability }

func (s *SimProvider) Authenticate(ctx context.Context) (bool, error) {
	return true, nil
}

func (s *SimProvider) CanHandle(query models.DataQuery) bool {
	return s.capability.Accepts(query)
}

// GetData produces one random-walk series per symbol across the query range
func (s *SimProvider) GetData(ctx context.Context, query models.DataQuery) (*models.DataResponse, error) {
	if !s.CanHandle(query) {
		return nil, CapabilityError(s.name, query)
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	start, end := s.rangeFor(query)
	step := barInterval(query.Timeframe)

	var points []models.DataPoint
	for _, symbol := range query.Symbols {
		points = append(points, s.walk(symbol, query, start, end, step)...)
	}
	if query.Limit > 0 && len(points) > query.Limit {
		points = points[:query.Limit]
	}

	return &models.DataResponse{
		Data: points,
		Metadata: models.ResponseMetadata{
			RecordCount: len(points),
			DataSource:  s.name,
			Warnings:    []string{},
		},
		Provider: models.ProviderInfo{
			Name:         s.name,
			DelaySeconds: s.capability.DataDelaySeconds,
		},
		Query: query,
	}, nil
}

// StreamData iterates the same points GetData returns
func (s *SimProvider) StreamData(ctx context.Context, query models.DataQuery) (<-chan models.DataPoint, error) {
	resp, err := s.GetData(ctx, query)
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

func (s *SimProvider) RealtimeQuote(ctx context.Context, symbol string, market models.Market) (map[string]interface{}, error) {
	if !s.capability.SupportsRealtime {
		return nil, nil
	}
	rng := rand.New(rand.NewSource(s.seed + int64(len(symbol))))
	price := 100 + rng.Float64()*50
	return map[string]interface{}{
		"symbol":    symbol,
		"market":    string(market),
		"price":     decimal.NewFromFloat(price).Round(6),
		"timestamp": time.Now().UTC(),
	}, nil
}

func (s *SimProvider) rangeFor(query models.DataQuery) (time.Time, time.Time) {
	end := time.Now().UTC().Truncate(time.Minute)
	if query.End != nil {
		end = query.End.UTC()
	}
	start := end.Add(-30 * barInterval(query.Timeframe))
	if query.Start != nil {
		start = query.Start.UTC()
	}
	return start, end
}

// walk generates a bounded random walk seeded per symbol so repeated calls
// for the same query return identical bars.
func (s *SimProvider) walk(symbol string, query models.DataQuery, start, end time.Time, step time.Duration) []models.DataPoint {
	var seed int64 = s.seed
	for _, c := range symbol {
		seed = seed*31 + int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	var points []models.DataPoint
	price := 50 + rng.Float64()*150
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		change := (rng.Float64() - 0.5) * price * 0.02
		open := price
		close := price + change
		high := maxFloat(open, close) * (1 + rng.Float64()*0.005)
		low := minFloat(open, close) * (1 - rng.Float64()*0.005)
		volume := 1000 + rng.Float64()*100000

		points = append(points, models.DataPoint{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      decimal.NewFromFloat(open).Round(6),
			High:      decimal.NewFromFloat(high).Round(6),
			Low:       decimal.NewFromFloat(low).Round(6),
			Close:     decimal.NewFromFloat(close).Round(6),
			Volume:    decimal.NewFromFloat(volume).Round(2),
			Amount:    decimal.NewFromFloat(volume * price).Round(2),
			Provider:  s.name,
		})
		price = close
	}
	return points
}

// barInterval maps a timeframe to the spacing between generated bars
func barInterval(tf models.Timeframe) time.Duration {
	switch tf {
	case models.TimeframeTick:
		return time.Second
	case models.Timeframe1m:
		return time.Minute
	case models.Timeframe5m:
		return 5 * time.Minute
	case models.Timeframe15m:
		return 15 * time.Minute
	case models.Timeframe30m:
		return 30 * time.Minute
	case models.Timeframe1h:
		return time.Hour
	case models.Timeframe1w:
		return 7 * 24 * time.Hour
	case models.Timeframe1M:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
