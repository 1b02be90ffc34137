package metrics

// Canonical metric names emitted across ontograph. Keeping them in one place
// prevents dashboard-breaking drift between emitters.
const (
	CacheHits      = "cache_hits_total"
	CacheMisses    = "cache_misses_total"
	CacheEvictions = "cache_evictions_total"
	CacheExpiries  = "cache_expiries_total"
	CacheSize      = "cache_entries"

	BreakerTransitions = "breaker_transitions_total"
	BreakerRejected    = "breaker_rejected_total"

	QueryLatencyMS = "query_latency_ms"
	QueryOutcomes  = "query_outcomes_total"
	QueryVisited   = "query_entities_visited"

	IngestAccepted  = "ingest_records_accepted_total"
	IngestRejected  = "ingest_records_rejected_total"
	IngestBatches   = "ingest_batches_committed_total"
	IngestFlushMS   = "ingest_flush_ms"
	IngestQueueSize = "ingest_queue_depth"
)
