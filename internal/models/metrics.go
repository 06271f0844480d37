package models

import "time"

// SystemMetrics summarises instrumentation counters for the console's status endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	CatalogPagesApplied      uint64    `json:"catalog_pages_applied"`
	CatalogPagesStale        uint64    `json:"catalog_pages_stale"`
	CatalogPagesFailed       uint64    `json:"catalog_pages_failed"`
	ActiveSessions           int64     `json:"active_sessions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
