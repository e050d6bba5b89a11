package models

import (
	"sort"
	"strings"
	"time"
)

// DataQuery is the value object describing one market-data request.
// Canonical() defines value equality for caching purposes.
type DataQuery struct {
	AssetKind AssetKind         `json:"asset_kind"`
	Market    Market            `json:"market,omitempty"`
	Symbols   []string          `json:"symbols,omitempty"`
	Timeframe Timeframe         `json:"timeframe"`
	Start     *time.Time        `json:"start,omitempty"`
	End       *time.Time        `json:"end,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Fields    []string          `json:"fields,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
}

// Canonical renders the normal form used for cache-key derivation:
// "<asset>|<market>|<sorted,comma-joined symbols>|<timeframe>|<start>|<end>".
// Absent fields render as "None". Symbol order never changes the result.
func (q DataQuery) Canonical() string {
	parts := make([]string, 0, 6)
	parts = append(parts, canonicalField(string(q.AssetKind)))
	parts = append(parts, canonicalField(string(q.Market)))

	if len(q.Symbols) == 0 {
		parts = append(parts, "None")
	} else {
		symbols := make([]string, len(q.Symbols))
		copy(symbols, q.Symbols)
		sort.Strings(symbols)
		parts = append(parts, strings.Join(symbols, ","))
	}

	parts = append(parts, canonicalField(string(q.Timeframe)))
	parts = append(parts, canonicalTime(q.Start))
	parts = append(parts, canonicalTime(q.End))

	return strings.Join(parts, "|")
}

func canonicalField(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func canonicalTime(t *time.Time) string {
	if t == nil {
		return "None"
	}
	return t.UTC().Format(time.RFC3339)
}
