package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo, startTime) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discount_pin_build_info",
			Help: "Always 1; labels carry the running build.",
		},
		[]string{"version", "commit", "go_version"},
	)

	startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "discount_pin_start_time_seconds",
			Help: "Unix time the process started serving.",
		},
	)
)

// SetBuildInfo is called once from main with the ldflags-stamped values.
func SetBuildInfo(version, commit string, started time.Time) {
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
	startTime.Set(float64(started.Unix()))
}
