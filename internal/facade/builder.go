package facade

import (
	"fmt"
	"time"

	"github.com/sawpanic/marketgate/internal/models"
)

// QueryBuilder is the fluent way to assemble a DataQuery. Enum values and
// date strings are checked at Build time, so a built query is always
// structurally valid.
type QueryBuilder struct {
	query models.DataQuery
	errs  []error
}

// NewQuery starts a builder for the given asset kind
func NewQuery(assetKind string) *QueryBuilder {
	b := &QueryBuilder{}
	kind, err := models.ParseAssetKind(assetKind)
	if err != nil {
		b.errs = append(b.errs, err)
	}
	b.query.AssetKind = kind
	return b
}

// Market sets the target market
func (b *QueryBuilder) Market(market string) *QueryBuilder {
	m, err := models.ParseMarket(market)
	if err != nil {
		b.errs = append(b.errs, err)
	}
	b.query.Market = m
	return b
}

// Symbols sets the symbol list
func (b *QueryBuilder) Symbols(symbols ...string) *QueryBuilder {
	b.query.Symbols = symbols
	return b
}

// Timeframe sets the bar size
func (b *QueryBuilder) Timeframe(tf string) *QueryBuilder {
	parsed, err := models.ParseTimeframe(tf)
	if err != nil {
		b.errs = append(b.errs, err)
	}
	b.query.Timeframe = parsed
	return b
}

// Range sets the time window from RFC3339 or date-only strings
func (b *QueryBuilder) Range(start, end string) *QueryBuilder {
	if start != "" {
		t, err := parseTimestamp(start)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("invalid start: %w", err))
		} else {
			b.query.Start = &t
		}
	}
	if end != "" {
		t, err := parseTimestamp(end)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("invalid end: %w", err))
		} else {
			b.query.End = &t
		}
	}
	return b
}

// Provider pins the query to one provider by name
func (b *QueryBuilder) Provider(name string) *QueryBuilder {
	b.query.Provider = name
	return b
}

// Limit caps the number of returned points
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.query.Limit = n
	return b
}

// Fields sets the projection list
func (b *QueryBuilder) Fields(fields ...string) *QueryBuilder {
	b.query.Fields = fields
	return b
}

// Filter adds one filter pair
func (b *QueryBuilder) Filter(key, value string) *QueryBuilder {
	if b.query.Filters == nil {
		b.query.Filters = make(map[string]string)
	}
	b.query.Filters[key] = value
	return b
}

// Build returns the validated query or the first accumulated error
func (b *QueryBuilder) Build() (models.DataQuery, error) {
	if len(b.errs) > 0 {
		return models.DataQuery{}, b.errs[0]
	}
	if b.query.Start != nil && b.query.End != nil && b.query.Start.After(*b.query.End) {
		return models.DataQuery{}, fmt.Errorf("start %s after end %s", b.query.Start, b.query.End)
	}
	return b.query, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
