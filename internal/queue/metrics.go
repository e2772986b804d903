package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for queue health, labelled by queue name.
var (
	messagesEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loam_queue_messages_enqueued_total",
			Help: "Total number of messages accepted for enqueue",
		},
		[]string{"queue"},
	)

	messagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loam_queue_messages_processed_total",
			Help: "Total number of handler completions by outcome",
		},
		[]string{"queue", "outcome"}, // success, retry, dead_letter
	)

	handlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loam_queue_handler_duration_seconds",
			Help:    "Duration of handler invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)

	pendingMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loam_queue_messages_pending",
			Help: "Snapshot of pending messages per queue",
		},
		[]string{"queue"},
	)
)
