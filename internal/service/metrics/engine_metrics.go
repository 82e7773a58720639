package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netrisk",
			Subsystem: "engine",
			Name:      "stage_seconds",
			Help:      "Latency of engine pipeline stages per horizon",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StageLatency)
	})
}

// ObserveStage records the wall time of one pipeline stage.
func ObserveStage(stage string, seconds float64) {
	StageLatency.WithLabelValues(stage).Observe(seconds)
}
