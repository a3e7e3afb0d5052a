package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PricingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricepulse",
			Subsystem: "pricing",
			Name:      "latency_seconds",
			Help:      "Latency of pricing endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PricingErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "pricing",
			Name:      "errors_total",
			Help:      "Errors by pricing endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(PricingLatency, PricingErrors)
	})
}
