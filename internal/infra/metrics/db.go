package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbPoolConns, dbPoolAcquireWait) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // 'total', 'idle', 'acquired', 'max'
	)

	dbPoolAcquireWait = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_acquire_wait_seconds_total",
			Help: "Cumulative time callers waited for a pooled connection.",
		},
	)
)

// PoolSnapshot is the subset of pool statistics exported as gauges.
type PoolSnapshot struct {
	Total, Idle, Acquired, Max int32
	AcquireWait                time.Duration
}

func SetDBPoolStats(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolAcquireWait.Set(s.AcquireWait.Seconds())
}
