package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions  *prometheus.CounterVec
	errors     *prometheus.CounterVec
	finalPrice *prometheus.GaugeVec
	latency    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_decisions_total",
				Help: "Total pricing decisions by source",
			},
			[]string{"source"},
		),
		errors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		finalPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricepulse_final_price",
				Help: "Last final price set for a product",
			},
			[]string{"product_id"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records a pricing decision by its source.
func (r *Recorder) RecordDecision(source string) {
	r.decisions.WithLabelValues(source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordFinalPrice records the last final price for a product.
func (r *Recorder) RecordFinalPrice(productID string, price float64) {
	r.finalPrice.WithLabelValues(productID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
