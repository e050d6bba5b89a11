// Package consistency compares the same series from two sources and
// reports day-level divergence. It never blocks ingestion; the report is
// operator-facing input for provider trust decisions.
package consistency

import (
	"fmt"
	"time"

	"github.com/sawpanic/marketgate/internal/ingest"
	"github.com/sawpanic/marketgate/internal/models"
)

const epsilon = 1e-9

// DefaultTolerance is the relative difference above which a day counts as
// a mismatch.
const DefaultTolerance = 0.01

// DayResult records the comparison outcome for one shared date
type DayResult struct {
	Date    time.Time `json:"date"`
	MaxDiff float64   `json:"max_diff"`
	Field   string    `json:"field"`
	Match   bool      `json:"match"`
	Outlier bool      `json:"outlier,omitempty"`
}

// Report summarizes a cross-source comparison
type Report struct {
	Symbol                string      `json:"symbol"`
	PrimarySource         string      `json:"primary_source"`
	ReferenceSource       string      `json:"reference_source"`
	TotalDays             int         `json:"total_days"`
	MatchingDays          int         `json:"matching_days"`
	MismatchingDays       int         `json:"mismatching_days"`
	MissingInPrimary      int         `json:"missing_in_primary"`
	MissingInReference    int         `json:"missing_in_reference"`
	OutlierDays           int         `json:"outlier_days"`
	AverageDiff           float64     `json:"average_diff"`
	MaxDiff               float64     `json:"max_diff"`
	ConsistencyPercentage float64     `json:"consistency_percentage"`
	Days                  []DayResult `json:"days,omitempty"`
	Issues                []string    `json:"issues,omitempty"`
}

// Validator compares OHLC series from two sources
type Validator struct {
	tolerance float64
}

// NewValidator creates a validator with the given mismatch tolerance.
// Pass 0 for the default 1%.
func NewValidator(tolerance float64) *Validator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Validator{tolerance: tolerance}
}

// Compare aligns the two series by date-truncated timestamp and checks
// open, high, low and close on every shared date. A day mismatches when
// any column's relative difference exceeds the tolerance.
func (v *Validator) Compare(symbol string, primary, reference []models.DataPoint, primarySource, referenceSource string) *Report {
	report := &Report{
		Symbol:          symbol,
		PrimarySource:   primarySource,
		ReferenceSource: referenceSource,
	}

	pByDate := indexByDate(primary)
	rByDate := indexByDate(reference)

	var diffSum float64
	var diffCount int

	for date, p := range pByDate {
		r, ok := rByDate[date]
		if !ok {
			report.MissingInReference++
			continue
		}
		report.TotalDays++

		day := compareDay(date, p, r, v.tolerance)
		report.Days = append(report.Days, day)

		diffSum += day.MaxDiff
		diffCount++
		if day.MaxDiff > report.MaxDiff {
			report.MaxDiff = day.MaxDiff
		}

		if day.Match {
			report.MatchingDays++
		} else {
			report.MismatchingDays++
			report.Issues = append(report.Issues, fmt.Sprintf(
				"%s %s: %s differs by %.2f%% between %s and %s",
				symbol, date.Format("2006-01-02"), day.Field,
				day.MaxDiff*100, primarySource, referenceSource))
		}
	}

	for date := range rByDate {
		if _, ok := pByDate[date]; !ok {
			report.MissingInPrimary++
		}
	}

	if diffCount > 0 {
		report.AverageDiff = diffSum / float64(diffCount)
	}
	if report.TotalDays > 0 {
		report.ConsistencyPercentage = 100 * float64(report.MatchingDays) / float64(report.TotalDays)
	}
	flagOutlierDays(report)
	return report
}

// flagOutlierDays marks days whose worst-column diff is an IQR outlier
// against the rest of the series. A day can be an outlier while still
// inside the mismatch tolerance; it is surfaced for review either way.
func flagOutlierDays(report *Report) {
	diffs := make([]float64, len(report.Days))
	for i, day := range report.Days {
		diffs[i] = day.MaxDiff
	}
	for _, i := range ingest.OutlierIndices(diffs, 1.5) {
		report.Days[i].Outlier = true
		report.OutlierDays++
		report.Issues = append(report.Issues, fmt.Sprintf(
			"%s %s: %s diff %.2f%% is an outlier against the rest of the series",
			report.Symbol, report.Days[i].Date.Format("2006-01-02"),
			report.Days[i].Field, report.Days[i].MaxDiff*100))
	}
}

// compareDay finds the worst relative difference across the four price
// columns for one date.
func compareDay(date time.Time, p, r models.DataPoint, tolerance float64) DayResult {
	day := DayResult{Date: date, Match: true}

	columns := []struct {
		name string
		a, b float64
	}{
		{"open", p.Open.InexactFloat64(), r.Open.InexactFloat64()},
		{"high", p.High.InexactFloat64(), r.High.InexactFloat64()},
		{"low", p.Low.InexactFloat64(), r.Low.InexactFloat64()},
		{"close", p.Close.InexactFloat64(), r.Close.InexactFloat64()},
	}

	for _, col := range columns {
		diff := relativeDiff(col.a, col.b)
		if diff > day.MaxDiff {
			day.MaxDiff = diff
			day.Field = col.name
		}
		if diff > tolerance {
			day.Match = false
		}
	}
	return day
}

// relativeDiff is |a−b| / max(|a|, |b|, ε)
func relativeDiff(a, b float64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	denom := absFloat(a)
	if absFloat(b) > denom {
		denom = absFloat(b)
	}
	if denom < epsilon {
		denom = epsilon
	}
	return diff / denom
}

// indexByDate keeps the last point per truncated date, matching how daily
// bars supersede intraday updates.
func indexByDate(points []models.DataPoint) map[time.Time]models.DataPoint {
	byDate := make(map[time.Time]models.DataPoint, len(points))
	for _, dp := range points {
		byDate[dp.Timestamp.UTC().Truncate(24*time.Hour)] = dp
	}
	return byDate
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
