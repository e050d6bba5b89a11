package models

import "time"

// Asset is the long-lived reference row describing one instrument
type Asset struct {
	Symbol    string                 `json:"symbol" db:"symbol"`
	Name      string                 `json:"name" db:"name"`
	AssetKind AssetKind              `json:"asset_kind" db:"asset_kind"`
	Market    Market                 `json:"market" db:"market"`
	Currency  string                 `json:"currency" db:"currency"`
	Exchange  string                 `json:"exchange,omitempty" db:"exchange"`
	Sector    string                 `json:"sector,omitempty" db:"sector"`
	Industry  string                 `json:"industry,omitempty" db:"industry"`
	Active    bool                   `json:"active" db:"active"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}
