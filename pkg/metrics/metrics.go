package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Extraction pipeline metrics
	ExtractionRuns       *prometheus.CounterVec
	CandidatesExtracted  prometheus.Counter
	ExtractionConfidence prometheus.Histogram

	// Schedule metrics
	DosesGenerated prometheus.Counter
	DosesPersisted prometheus.Counter
	DoseStatusSet  *prometheus.CounterVec

	// Alert dispatch metrics
	AlertsScheduled prometheus.Counter
	AlertsSkipped   prometheus.Counter
	AlertsSent      prometheus.Counter
	AlertsFailed    prometheus.Counter
	DispatchLatency prometheus.Histogram

	// Storage metrics
	StoreOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		ExtractionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extraction_runs_total",
			Help:      "Extraction runs by source (entities or heuristics)",
		}, []string{"source"}),
		CandidatesExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "medication_candidates_total",
			Help:      "Total number of medication candidates produced",
		}),
		ExtractionConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extraction_confidence",
			Help:      "Confidence scores of extracted candidates",
			Buckets:   []float64{0.2, 0.33, 0.5, 0.65, 0.8, 0.9, 1},
		}),
		DosesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "doses_generated_total",
			Help:      "Total number of dose instances generated from patterns",
		}),
		DosesPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "doses_persisted_total",
			Help:      "Total number of dose instances written to the store",
		}),
		DoseStatusSet: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dose_status_updates_total",
			Help:      "Dose status updates by resulting status",
		}, []string{"status"}),
		AlertsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_scheduled_total",
			Help:      "Total number of alerts registered with the platform",
		}),
		AlertsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_skipped_total",
			Help:      "Alerts skipped because the dose time had passed",
		}),
		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_sent_total",
			Help:      "Total number of alerts delivered by the dispatcher",
		}),
		AlertsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_failed_total",
			Help:      "Total number of alert deliveries that failed",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alert_dispatch_duration_seconds",
			Help:      "Time spent dispatching due alerts",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_operations_total",
			Help:      "Key-value store operations by operation and status",
		}, []string{"operation", "status"}),
	}
}
