package model

import "time"

// SortMode orders marketplace results.
type SortMode string

// Sort modes.
const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
)

// SearchQuery is an immutable marketplace search request.
type SearchQuery struct {
	Term   string   `json:"term"`
	Region string   `json:"region"`
	Page   int      `json:"page,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Sort   SortMode `json:"sort,omitempty"`
}

// Status is the outcome of a pipeline run.
type Status string

// Status values.
const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Stats counts what each stage produced.
type Stats struct {
	Searched  int           `json:"searched"`
	Filtered  int           `json:"filtered"`
	Ranked    int           `json:"ranked"`
	Contacted int           `json:"contacted"`
	CacheHit  bool          `json:"cache_hit"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Result is what a pipeline run hands back to its caller.
type Result struct {
	RunID    string          `json:"run_id"`
	Status   Status          `json:"status"`
	Message  string          `json:"message"`
	Query    string          `json:"query"`
	Region   string          `json:"region"`
	Products []RankedListing `json:"products"`
	Stats    Stats           `json:"stats"`
}

// SearchRecord is one row of the search history log.
type SearchRecord struct {
	ID          string         `json:"id"`
	Term        string         `json:"term"`
	Region      string         `json:"region"`
	Status      Status         `json:"status"`
	ResultCount int            `json:"result_count"`
	Params      map[string]any `json:"params,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
