package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, durableStoreUp) }

var dbPoolStats = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_stats",
		Help: "Current state of the database connection pool.",
	},
	[]string{"state"}, // 'total', 'idle', 'in_use'
)

var durableStoreUp = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "durable_store_up",
		Help: "1 when the durable store answered the last ping, 0 otherwise.",
	},
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func SetDurableStoreUp(up bool) {
	if up {
		durableStoreUp.Set(1)
		return
	}
	durableStoreUp.Set(0)
}
