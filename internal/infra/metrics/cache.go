package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal, durableMirrorFailuresTotal) }

var cacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Tracks fast-store hits and misses.",
	},
	[]string{"cache", "result"}, // e.g., cache="user_config", result="hit"
)

var durableMirrorFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "durable_mirror_failures_total",
		Help: "Best-effort durable-store writes that failed and were swallowed.",
	},
	[]string{"op"},
)

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func IncDurableMirrorFailure(op string) {
	durableMirrorFailuresTotal.WithLabelValues(norm(op)).Inc()
}
