package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DataPoint is one OHLCV bar as emitted by a provider. Immutable once built.
// Prices carry full decimal precision; JSON encodes them as strings.
type DataPoint struct {
	Symbol    string                 `json:"symbol"`
	Timestamp time.Time              `json:"timestamp"`
	Open      decimal.Decimal        `json:"open"`
	High      decimal.Decimal        `json:"high"`
	Low       decimal.Decimal        `json:"low"`
	Close     decimal.Decimal        `json:"close"`
	Volume    decimal.Decimal        `json:"volume"`
	Amount    decimal.Decimal        `json:"amount,omitempty"`
	Provider  string                 `json:"provider,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Validate enforces the bar invariants: low <= open,close <= high,
// volume >= 0 and timestamp not in the future.
func (dp DataPoint) Validate(now time.Time) error {
	if dp.Symbol == "" {
		return fmt.Errorf("data point missing symbol")
	}
	if dp.Low.GreaterThan(dp.High) {
		return fmt.Errorf("%s@%s: low %s > high %s", dp.Symbol, dp.Timestamp.Format(time.RFC3339), dp.Low, dp.High)
	}
	if dp.Open.LessThan(dp.Low) || dp.Open.GreaterThan(dp.High) {
		return fmt.Errorf("%s@%s: open %s outside [%s, %s]", dp.Symbol, dp.Timestamp.Format(time.RFC3339), dp.Open, dp.Low, dp.High)
	}
	if dp.Close.LessThan(dp.Low) || dp.Close.GreaterThan(dp.High) {
		return fmt.Errorf("%s@%s: close %s outside [%s, %s]", dp.Symbol, dp.Timestamp.Format(time.RFC3339), dp.Close, dp.Low, dp.High)
	}
	if dp.Volume.IsNegative() {
		return fmt.Errorf("%s@%s: negative volume %s", dp.Symbol, dp.Timestamp.Format(time.RFC3339), dp.Volume)
	}
	if dp.Timestamp.After(now) {
		return fmt.Errorf("%s: timestamp %s is in the future", dp.Symbol, dp.Timestamp.Format(time.RFC3339))
	}
	return nil
}
