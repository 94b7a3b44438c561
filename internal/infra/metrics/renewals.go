package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		renewalsTotal,
		renewalRunDuration,
		renewalLastRun,
	)
}

var (
	renewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_renewals_total",
			Help: "Plans processed by the renewal job, by result.",
		},
		[]string{"result"}, // 'renewed', 'skipped', 'failed'
	)

	renewalRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pin_renewal_duration_seconds",
			Help:    "Wall time of a full renewal run.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	renewalLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pin_renewal_last_run_timestamp_seconds",
			Help: "Unix time of the last finished renewal run.",
		},
	)
)

func ObserveRenewalRun(renewed, skipped, failed int, d time.Duration, finished time.Time) {
	renewalsTotal.WithLabelValues("renewed").Add(float64(renewed))
	renewalsTotal.WithLabelValues("skipped").Add(float64(skipped))
	renewalsTotal.WithLabelValues("failed").Add(float64(failed))
	renewalRunDuration.Observe(d.Seconds())
	renewalLastRun.Set(float64(finished.Unix()))
}
