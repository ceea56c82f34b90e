// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClientCacheHits counts client cache hits per capability.
	ClientCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmux_client_cache_hits_total",
		Help: "Client cache hits by capability.",
	}, []string{"capability"})

	// ClientCacheMisses counts client cache misses (builds) per capability.
	ClientCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmux_client_cache_misses_total",
		Help: "Client cache misses by capability.",
	}, []string{"capability"})

	// ClientCacheEvictions counts evictions caused by liveness failures.
	ClientCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmux_client_cache_evictions_total",
		Help: "Client cache evictions by capability.",
	}, []string{"capability"})

	// StreamsStarted counts streaming chat turns by mode (normal, prefix).
	StreamsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmux_streams_started_total",
		Help: "Streaming chat turns started by mode.",
	}, []string{"mode"})

	// StreamsFailed counts streams that terminated without a done marker.
	StreamsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmux_streams_failed_total",
		Help: "Streams terminated by an upstream error, by mode.",
	}, []string{"mode"})

	// SideEffectFailures counts swallowed best-effort failures (usage log
	// writes, title generation, memory appends).
	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmux_side_effect_failures_total",
		Help: "Swallowed best-effort side effect failures by kind.",
	}, []string{"kind"})
)
