package models

import "fmt"

// AssetKind identifies the class of instrument a query or record refers to
type AssetKind string

const (
	AssetStock   AssetKind = "stock"
	AssetCrypto  AssetKind = "crypto"
	AssetFund    AssetKind = "fund"
	AssetIndex   AssetKind = "index"
	AssetFutures AssetKind = "futures"
	AssetForex   AssetKind = "forex"
)

// Valid reports whether the asset kind is one of the known values
func (a AssetKind) Valid() bool {
	switch a {
	case AssetStock, AssetCrypto, AssetFund, AssetIndex, AssetFutures, AssetForex:
		return true
	}
	return false
}

// ParseAssetKind converts a string to an AssetKind, rejecting unknown values
func ParseAssetKind(s string) (AssetKind, error) {
	a := AssetKind(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown asset kind: %q", s)
	}
	return a, nil
}

// Market identifies the trading venue region
type Market string

const (
	MarketCN     Market = "cn"
	MarketUS     Market = "us"
	MarketHK     Market = "hk"
	MarketCrypto Market = "crypto"
	MarketGlobal Market = "global"
)

// Valid reports whether the market is one of the known values
func (m Market) Valid() bool {
	switch m {
	case MarketCN, MarketUS, MarketHK, MarketCrypto, MarketGlobal:
		return true
	}
	return false
}

// ParseMarket converts a string to a Market, rejecting unknown values
func ParseMarket(s string) (Market, error) {
	m := Market(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown market: %q", s)
	}
	return m, nil
}

// Timeframe is the period size of one bar
type Timeframe string

const (
	TimeframeTick Timeframe = "tick"
	Timeframe1m   Timeframe = "1m"
	Timeframe5m   Timeframe = "5m"
	Timeframe15m  Timeframe = "15m"
	Timeframe30m  Timeframe = "30m"
	Timeframe1h   Timeframe = "1h"
	Timeframe1d   Timeframe = "1d"
	Timeframe1w   Timeframe = "1w"
	Timeframe1M   Timeframe = "1M"
)

// Valid reports whether the timeframe is one of the known values
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeTick, Timeframe1m, Timeframe5m, Timeframe15m,
		Timeframe30m, Timeframe1h, Timeframe1d, Timeframe1w, Timeframe1M:
		return true
	}
	return false
}

// Intraday reports whether the timeframe is smaller than one day.
// Ticks are intraday for table-routing purposes.
func (tf Timeframe) Intraday() bool {
	switch tf {
	case TimeframeTick, Timeframe1m, Timeframe5m, Timeframe15m, Timeframe30m, Timeframe1h:
		return true
	}
	return false
}

// ParseTimeframe converts a string to a Timeframe, rejecting unknown values
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("unknown timeframe: %q", s)
	}
	return tf, nil
}
