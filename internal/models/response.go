package models

// ResponseMetadata carries per-call diagnostics alongside the data
type ResponseMetadata struct {
	ExecutionTimeMs float64  `json:"execution_time_ms"`
	RecordCount     int      `json:"record_count"`
	CacheHit        bool     `json:"cache_hit"`
	DataSource      string   `json:"data_source,omitempty"`
	QualityScore    float64  `json:"quality_score,omitempty"`
	Warnings        []string `json:"warnings"`
}

// ProviderInfo identifies the provider that served a response
type ProviderInfo struct {
	Name         string `json:"name"`
	DelaySeconds int    `json:"delay_seconds,omitempty"`
}

// DataResponse is the result of one query: an order-preserving slice of
// data points plus call metadata and the originating query.
type DataResponse struct {
	Data     []DataPoint      `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
	Provider ProviderInfo     `json:"provider"`
	Query    DataQuery        `json:"query"`
}

// AddWarning appends a non-fatal diagnostic to the response metadata
func (r *DataResponse) AddWarning(msg string) {
	r.Metadata.Warnings = append(r.Metadata.Warnings, msg)
}
