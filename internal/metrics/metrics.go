package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts finished requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PostDBQueries counts queries made from the post repository
	PostDBQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "post_repository_db_queries_total",
		Help: "The total number of queries made to the DB from post repository.",
	}, []string{"query", "status"})

	// PostDBQueryDuration observes query latency
	PostDBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "post_repository_db_query_duration_seconds",
		Help:    "Duration of post repository queries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	// PostCacheHits calculates # of cache hits
	PostCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "post_repository_cache_hits_total",
		Help: "The total number of cache hits for post repository",
	})

	// PostCacheMisses calculates # of cache misses
	PostCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "post_repository_cache_misses_total",
		Help: "The total number of cache misses for post repository",
	})

	// PostCacheShardJoins calculates # of partial cache hits
	PostCacheShardJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "post_repository_cache_shard_joins_total",
		Help: "The total number of times a partial cache hit required a DB query (shard join).",
	})

	// PostCacheInvalidations counts keys dropped after a mutation
	PostCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "post_repository_cache_invalidations_total",
		Help: "The total number of cache invalidations triggered by post mutations.",
	})

	// RedisSlotReads tells # of reads per cluster hash slot
	RedisSlotReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_slot_reads_total",
		Help: "Total number of cache reads, partitioned by Redis cluster hash slot.",
	}, []string{"slot"})
)
