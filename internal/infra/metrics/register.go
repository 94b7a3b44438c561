package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Each metrics file queues its collectors from init; nothing is exported to
// Prometheus until a binary that serves /metrics asks for it.
var (
	queueMu sync.Mutex
	queued  []prometheus.Collector

	defaultOnce sync.Once
)

func register(cs ...prometheus.Collector) {
	queueMu.Lock()
	queued = append(queued, cs...)
	queueMu.Unlock()
}

// Collectors returns a copy of the queued pin service collectors.
func Collectors() []prometheus.Collector {
	queueMu.Lock()
	defer queueMu.Unlock()
	out := make([]prometheus.Collector, len(queued))
	copy(out, queued)
	return out
}

// MustRegisterWith registers every pin service collector with reg.
// It panics on a duplicate, like prometheus.MustRegister.
func MustRegisterWith(reg prometheus.Registerer) {
	if cs := Collectors(); len(cs) > 0 {
		reg.MustRegister(cs...)
	}
}

// MustRegister wires the collectors into the default registry. Repeat calls are no-ops.
func MustRegister() {
	defaultOnce.Do(func() { MustRegisterWith(prometheus.DefaultRegisterer) })
}
