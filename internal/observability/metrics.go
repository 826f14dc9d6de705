// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Event flow metrics
	EventsProcessed       *prometheus.CounterVec
	EventsSkippedStale    prometheus.Counter
	EventsSkippedOldToken prometheus.Counter
	BuysClassified        prometheus.Counter
	DedupSuppressed       *prometheus.CounterVec

	// Alert metrics
	AlertsSent   prometheus.Counter
	AlertsStored prometheus.Counter
	NotifyErrors prometheus.Counter

	// Upstream metrics
	FetchErrors      *prometheus.CounterVec
	FetchLatency     prometheus.Histogram
	WebhookDelivered *prometheus.CounterVec

	// Cycle metrics
	CycleDuration  prometheus.Histogram
	WalletsWatched prometheus.Gauge
	DedupEntries   prometheus.Gauge

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_tracker"
	}

	return &Metrics{
		// Event flow metrics
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "processed_total",
			Help:      "Total number of transaction events processed by ingest path",
		}, []string{"path"}),
		EventsSkippedStale: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "skipped_stale_total",
			Help:      "Total number of events skipped for exceeding the age cutoff",
		}),
		EventsSkippedOldToken: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "skipped_old_token_total",
			Help:      "Total number of buys skipped by the token age gate",
		}),
		BuysClassified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "buys_classified_total",
			Help:      "Total number of events classified as buys",
		}),
		DedupSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dedup_suppressed_total",
			Help:      "Total number of events suppressed by the dedup ledger",
		}, []string{"policy"}),

		// Alert metrics
		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "sent_total",
			Help:      "Total number of alerts delivered to Telegram",
		}),
		AlertsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "stored_total",
			Help:      "Total number of alerts persisted to the history store",
		}),
		NotifyErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notify_errors_total",
			Help:      "Total number of failed alert deliveries",
		}),

		// Upstream metrics
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed history fetches by error type",
		}, []string{"error_type"}),
		FetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_latency_seconds",
			Help:      "History fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WebhookDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "webhook_deliveries_total",
			Help:      "Total number of webhook deliveries by outcome",
		}, []string{"outcome"}),

		// Cycle metrics
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		WalletsWatched: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "wallets_watched",
			Help:      "Number of wallets in the watch registry",
		}),
		DedupEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dedup_entries",
			Help:      "Current number of live entries in the dedup ledger",
		}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed poll cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed increments the processed counter for an ingest path
// ("poll", "webhook" or "stream").
func RecordEventProcessed(path string) {
	DefaultMetrics.EventsProcessed.WithLabelValues(path).Inc()
}

// RecordStaleSkipped increments the stale-event skip counter.
func RecordStaleSkipped() {
	DefaultMetrics.EventsSkippedStale.Inc()
}

// RecordOldTokenSkipped increments the token-age-gate skip counter.
func RecordOldTokenSkipped() {
	DefaultMetrics.EventsSkippedOldToken.Inc()
}

// RecordBuyClassified increments the classified-buy counter.
func RecordBuyClassified() {
	DefaultMetrics.BuysClassified.Inc()
}

// RecordDedupSuppressed increments the suppression counter for a policy.
func RecordDedupSuppressed(policy string) {
	DefaultMetrics.DedupSuppressed.WithLabelValues(policy).Inc()
}

// RecordAlertSent increments the delivered-alert counter.
func RecordAlertSent() {
	DefaultMetrics.AlertsSent.Inc()
}

// RecordAlertStored increments the persisted-alert counter.
func RecordAlertStored() {
	DefaultMetrics.AlertsStored.Inc()
}

// RecordNotifyError increments the failed-delivery counter.
func RecordNotifyError() {
	DefaultMetrics.NotifyErrors.Inc()
}

// RecordFetchError records a failed history fetch.
func RecordFetchError(errorType string) {
	DefaultMetrics.FetchErrors.WithLabelValues(errorType).Inc()
}

// RecordFetchLatency records history fetch latency.
func RecordFetchLatency(seconds float64) {
	DefaultMetrics.FetchLatency.Observe(seconds)
}

// RecordWebhookDelivery records a webhook delivery outcome ("accepted",
// "empty" or "invalid").
func RecordWebhookDelivery(outcome string) {
	DefaultMetrics.WebhookDelivered.WithLabelValues(outcome).Inc()
}

// RecordCycleDuration records a completed poll cycle.
func RecordCycleDuration(seconds float64) {
	DefaultMetrics.CycleDuration.Observe(seconds)
	DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
}

// UpdateWalletsWatched updates the watched-wallet gauge.
func UpdateWalletsWatched(n int) {
	DefaultMetrics.WalletsWatched.Set(float64(n))
}

// UpdateDedupEntries updates the dedup ledger size gauge.
func UpdateDedupEntries(n int) {
	DefaultMetrics.DedupEntries.Set(float64(n))
}
