package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerlog_events_received_total",
			Help: "Total number of log records received, by source",
		},
		[]string{"source"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerlog_parse_errors_total",
			Help: "Total number of records dropped as unparseable, by source",
		},
		[]string{"source"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgerlog_queue_depth",
			Help: "Current number of entries staged in the write queue",
		},
	)

	BatchFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerlog_batch_flushes_total",
			Help: "Total number of batch flushes committed",
		},
	)

	// Storage metrics
	EventsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerlog_events_written_total",
			Help: "Total number of log records persisted",
		},
	)

	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerlog_storage_errors_total",
			Help: "Total number of failed storage operations",
		},
	)
)
