// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FulfillmentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_requests_total",
			Help: "Total number of webhook requests by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_query_duration_seconds",
			Help:    "Duration of warehouse round trips in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"backend", "op", "outcome"},
	)

	IngestMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of sensit callbacks received over MQTT by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveQuery records the duration of one warehouse call since start.
func ObserveQuery(backend, op, outcome string, start time.Time) {
	WarehouseQueryDuration.WithLabelValues(backend, op, outcome).Observe(time.Since(start).Seconds())
}
