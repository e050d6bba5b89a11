// Package ingest turns raw provider rows into validated, scored, persisted
// records. Validation is all-or-nothing per batch: a single issue rejects
// every row, so the landing table never holds partially-clean batches.
package ingest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/marketgate/internal/models"
)

// Issue codes emitted by the validator, in check order
const (
	IssueNonMonotonic = "NON_MONOTONIC"
	IssueDuplicateRow = "DUPLICATE_ROW"
	IssueNullPrice    = "NULL_PRICE"
	IssueLowGtHigh    = "LOW_GT_HIGH"
	IssueOpenGtHigh   = "OPEN_GT_HIGH"
	IssueCloseGtHigh  = "CLOSE_GT_HIGH"
)

// RawRecord is one unvalidated row as delivered by a provider feed.
// Prices are pointers because upstream feeds do ship null prices.
type RawRecord struct {
	Symbol       string           `json:"symbol"`
	Market       models.Market    `json:"market"`
	Timestamp    time.Time        `json:"timestamp"`
	Open         *decimal.Decimal `json:"open"`
	High         *decimal.Decimal `json:"high"`
	Low          *decimal.Decimal `json:"low"`
	Close        *decimal.Decimal `json:"close"`
	Volume       *decimal.Decimal `json:"volume"`
	SourceSystem string           `json:"source_system"`
	Origin       string           `json:"origin"`
}

// ValidationIssue describes one failed check
type ValidationIssue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate runs the check passes in order: timestamp monotonicity within
// (symbol, market), duplicate (symbol, market, timestamp) triples, null
// prices, then OHLC relationship violations. All issues are collected, not
// just the first.
func Validate(records []RawRecord) []ValidationIssue {
	var issues []ValidationIssue

	lastSeen := make(map[string]time.Time)
	seen := make(map[string]bool)

	for i, rec := range records {
		group := rec.Symbol + "|" + string(rec.Market)

		if prev, ok := lastSeen[group]; ok && rec.Timestamp.Before(prev) {
			issues = append(issues, ValidationIssue{
				Field: "timestamp",
				Code:  IssueNonMonotonic,
				Message: fmt.Sprintf("row %d: %s timestamp %s precedes %s",
					i, rec.Symbol, rec.Timestamp.Format(time.RFC3339), prev.Format(time.RFC3339)),
			})
		}
		lastSeen[group] = rec.Timestamp

		triple := group + "|" + rec.Timestamp.UTC().Format(time.RFC3339Nano)
		if seen[triple] {
			issues = append(issues, ValidationIssue{
				Field:   "timestamp",
				Code:    IssueDuplicateRow,
				Message: fmt.Sprintf("row %d: duplicate (%s, %s, %s)", i, rec.Symbol, rec.Market, rec.Timestamp.Format(time.RFC3339)),
			})
		}
		seen[triple] = true

		if missingPrice(rec) {
			issues = append(issues, ValidationIssue{
				Field:   "price",
				Code:    IssueNullPrice,
				Message: fmt.Sprintf("row %d: %s has null price fields", i, rec.Symbol),
			})
			continue // Relationship checks need all four prices
		}

		issues = append(issues, relationshipIssues(i, rec)...)
	}

	return issues
}

// relationshipIssues checks the OHLC ordering constraints for one row
func relationshipIssues(i int, rec RawRecord) []ValidationIssue {
	var issues []ValidationIssue
	if rec.Low.GreaterThan(*rec.High) {
		issues = append(issues, ValidationIssue{
			Field:   "low",
			Code:    IssueLowGtHigh,
			Message: fmt.Sprintf("row %d: %s low %s > high %s", i, rec.Symbol, rec.Low, rec.High),
		})
	}
	if rec.Open.GreaterThan(*rec.High) {
		issues = append(issues, ValidationIssue{
			Field:   "open",
			Code:    IssueOpenGtHigh,
			Message: fmt.Sprintf("row %d: %s open %s > high %s", i, rec.Symbol, rec.Open, rec.High),
		})
	}
	if rec.Close.GreaterThan(*rec.High) {
		issues = append(issues, ValidationIssue{
			Field:   "close",
			Code:    IssueCloseGtHigh,
			Message: fmt.Sprintf("row %d: %s close %s > high %s", i, rec.Symbol, rec.Close, rec.High),
		})
	}
	return issues
}

func missingPrice(rec RawRecord) bool {
	return rec.Open == nil || rec.High == nil || rec.Low == nil || rec.Close == nil
}

// anomalous reports whether a fully-priced row violates any OHLC
// relationship; used by the accuracy component of the quality score.
func anomalous(rec RawRecord) bool {
	if missingPrice(rec) {
		return false
	}
	return rec.Low.GreaterThan(*rec.High) ||
		rec.Open.GreaterThan(*rec.High) ||
		rec.Close.GreaterThan(*rec.High)
}
