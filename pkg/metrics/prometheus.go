package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal       *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	stability        *prometheus.GaugeVec
	netLoad          *prometheus.GaugeVec
	payloadReduction *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
	convergenceMiss  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netrisk_ticks_total",
				Help: "Recomputation ticks by outcome",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netrisk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		stability: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netrisk_stability_index",
				Help: "Latest stability index per horizon",
			},
			[]string{"horizon"},
		),
		netLoad: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netrisk_net_load",
				Help: "Latest residual settlement load per horizon",
			},
			[]string{"horizon"},
		),
		payloadReduction: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netrisk_payload_reduction_percent",
				Help: "Latest netting payload reduction per horizon",
			},
			[]string{"horizon"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netrisk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		convergenceMiss: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netrisk_convergence_misses_total",
				Help: "Iterative stages that hit their iteration cap",
			},
			[]string{"stage"},
		),
	}
}

// RecordTick records one recomputation tick outcome.
func (r *Recorder) RecordTick(result string) {
	r.ticksTotal.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordHorizon records the headline gauges for one computed horizon.
func (r *Recorder) RecordHorizon(horizon int, stability, netLoad, payloadReduction float64) {
	h := strconv.Itoa(horizon)
	r.stability.WithLabelValues(h).Set(stability)
	r.netLoad.WithLabelValues(h).Set(netLoad)
	r.payloadReduction.WithLabelValues(h).Set(payloadReduction)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordConvergenceMiss records an iterative stage hitting its cap.
func (r *Recorder) RecordConvergenceMiss(stage string) {
	r.convergenceMiss.WithLabelValues(stage).Inc()
}
