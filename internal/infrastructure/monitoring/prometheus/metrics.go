package prometheus

import "time"

// Histogram buckets tuned per concern.  Worker tasks include model
// inference so the tail runs into minutes; record-store loads and cache
// operations are sub-second.
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultWorkerDurationBuckets = []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300}
	DefaultStoreDurationBuckets  = []float64{.001, .005, .01, .05, .1, .5, 1, 5}
	DefaultMatchPairBuckets      = []float64{0, 1, 5, 10, 50, 100, 500, 1000}
)

// AppMetrics bundles every metric the platform emits.
type AppMetrics struct {
	// HTTP surface.
	HTTPRequestsTotal   CounterVec // method, path, status
	HTTPRequestDuration HistogramVec

	// Worker invocation layer.
	WorkerInvocationsTotal CounterVec // task, outcome: ok|degraded|runtime_error|spawn_error|timeout
	WorkerInvokeDuration   HistogramVec
	WorkerActive           GaugeVec

	// Analysis pipeline.
	PipelineRunsTotal    CounterVec // stage, outcome
	PipelineRunDuration  HistogramVec
	ClassificationsTotal CounterVec // priority label

	// Entity matching.
	MatchRunsTotal    CounterVec // pass: cross|within_victim|within_official
	MatchRunDuration  HistogramVec
	MatchPairsFound   HistogramVec
	RecordStoreLoads  CounterVec // store, outcome: ok|error|cache_hit
	RecordStoreSize   GaugeVec
	StoreInvalidation CounterVec

	// Knowledge retrieval.
	RetrievalsTotal     CounterVec // backend, outcome: ok|fallback|error
	RetrievalDuration   HistogramVec
	EmbeddingsTotal     CounterVec
	WebSearchFallbacks  CounterVec
	KnowledgeChunkCount GaugeVec

	// Infrastructure.
	CacheHitsTotal    CounterVec // cache
	CacheMissesTotal  CounterVec
	EventsPublished   CounterVec // topic, outcome
	EvidenceStaged    CounterVec // outcome
	DBQueryDuration   HistogramVec
	GraphWritesTotal  CounterVec // outcome
	ErrorsTotal       CounterVec // module, code
}

// NewAppMetrics registers the full metric set against the collector.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal: c.RegisterCounter("http_requests_total",
			"Total HTTP requests served.", "method", "path", "status"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds",
			"HTTP request latency.", DefaultHTTPDurationBuckets, "method", "path"),

		WorkerInvocationsTotal: c.RegisterCounter("worker_invocations_total",
			"Worker task invocations by outcome.", "task", "outcome"),
		WorkerInvokeDuration: c.RegisterHistogram("worker_invoke_duration_seconds",
			"Wall-clock duration of worker invocations.", DefaultWorkerDurationBuckets, "task"),
		WorkerActive: c.RegisterGauge("worker_active",
			"Worker processes currently running.", "task"),

		PipelineRunsTotal: c.RegisterCounter("pipeline_runs_total",
			"Analysis pipeline stage executions.", "stage", "outcome"),
		PipelineRunDuration: c.RegisterHistogram("pipeline_run_duration_seconds",
			"Duration of analysis pipeline stages.", DefaultWorkerDurationBuckets, "stage"),
		ClassificationsTotal: c.RegisterCounter("classifications_total",
			"Incident classifications by priority label.", "priority"),

		MatchRunsTotal: c.RegisterCounter("match_runs_total",
			"Similarity matching passes.", "pass"),
		MatchRunDuration: c.RegisterHistogram("match_run_duration_seconds",
			"Duration of a full matching pass.", DefaultStoreDurationBuckets, "pass"),
		MatchPairsFound: c.RegisterHistogram("match_pairs_found",
			"Pairs at or above threshold per matching pass.", DefaultMatchPairBuckets, "pass"),
		RecordStoreLoads: c.RegisterCounter("record_store_loads_total",
			"Record store load attempts.", "store", "outcome"),
		RecordStoreSize: c.RegisterGauge("record_store_size",
			"Records held by each store.", "store"),
		StoreInvalidation: c.RegisterCounter("record_store_invalidations_total",
			"Cache invalidations triggered by file changes.", "store"),

		RetrievalsTotal: c.RegisterCounter("knowledge_retrievals_total",
			"Knowledge retrievals by backend and outcome.", "backend", "outcome"),
		RetrievalDuration: c.RegisterHistogram("knowledge_retrieval_duration_seconds",
			"End-to-end retrieval latency including embedding.", DefaultWorkerDurationBuckets, "backend"),
		EmbeddingsTotal: c.RegisterCounter("knowledge_embeddings_total",
			"Embedding computations.", "outcome"),
		WebSearchFallbacks: c.RegisterCounter("knowledge_web_search_fallbacks_total",
			"Times retrieval fell back to web search.", "outcome"),
		KnowledgeChunkCount: c.RegisterGauge("knowledge_chunks",
			"Chunks currently indexed.", "backend"),

		CacheHitsTotal: c.RegisterCounter("cache_hits_total",
			"Cache hits.", "cache"),
		CacheMissesTotal: c.RegisterCounter("cache_misses_total",
			"Cache misses.", "cache"),
		EventsPublished: c.RegisterCounter("events_published_total",
			"Domain events published to the message bus.", "topic", "outcome"),
		EvidenceStaged: c.RegisterCounter("evidence_staged_total",
			"Evidence objects staged to object storage.", "outcome"),
		DBQueryDuration: c.RegisterHistogram("db_query_duration_seconds",
			"Database query latency.", DefaultStoreDurationBuckets, "query"),
		GraphWritesTotal: c.RegisterCounter("graph_writes_total",
			"Match-graph persistence operations.", "outcome"),
		ErrorsTotal: c.RegisterCounter("errors_total",
			"Application errors by module and code.", "module", "code"),
	}
}

// NewNopAppMetrics returns an AppMetrics whose observations are discarded.
func NewNopAppMetrics() *AppMetrics { return NewAppMetrics(NewNopCollector()) }

// ObserveDuration records the seconds elapsed since start.
func ObserveDuration(h Histogram, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
