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
	// Subscription metrics
	NotificationsReceived *prometheus.CounterVec
	SubscribeRequests     *prometheus.CounterVec
	Reconnects            *prometheus.CounterVec
	ReconnectAlarms       *prometheus.CounterVec

	// Discovery metrics
	MintsDiscovered prometheus.Counter
	ParseFailures   prometheus.Counter
	DuplicateMints  prometheus.Counter

	// Pipeline metrics
	QueueDepth       *prometheus.GaugeVec
	EnrichmentErrors *prometheus.CounterVec
	ListingHits      *prometheus.CounterVec
	TokensReported   prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mint_sniffer"
	}

	return &Metrics{
		// Subscription metrics
		NotificationsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received by program",
		}, []string{"program"}),
		SubscribeRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "subscribe_requests_total",
			Help:      "Total number of logsSubscribe requests sent by program",
		}, []string{"program"}),
		Reconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect attempts by program",
		}, []string{"program"}),
		ReconnectAlarms: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "reconnect_alarms_total",
			Help:      "Total number of consecutive-failure alarms raised by program",
		}, []string{"program"}),

		// Discovery metrics
		MintsDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "mints_discovered_total",
			Help:      "Total number of mint creation events with an extracted address",
		}),
		ParseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "parse_failures_total",
			Help:      "Total number of mint creation events with no extractable address",
		}),
		DuplicateMints: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "duplicate_mints_total",
			Help:      "Total number of mints dropped by deduplication",
		}),

		// Pipeline metrics
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_depth",
			Help:      "Current number of items in each pipeline queue",
		}, []string{"queue"}),
		EnrichmentErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "enrichment_errors_total",
			Help:      "Total number of enrichment errors by stage",
		}, []string{"stage"}),
		ListingHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "listing_hits_total",
			Help:      "Total number of DEX listing matches by venue",
		}, []string{"venue"}),
		TokensReported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tokens_reported_total",
			Help:      "Total number of fully enriched tokens reported",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordNotification increments the notifications received counter.
func RecordNotification(program string) {
	DefaultMetrics.NotificationsReceived.WithLabelValues(program).Inc()
}

// RecordSubscribe increments the subscribe requests counter.
func RecordSubscribe(program string) {
	DefaultMetrics.SubscribeRequests.WithLabelValues(program).Inc()
}

// RecordReconnect increments the reconnects counter.
func RecordReconnect(program string) {
	DefaultMetrics.Reconnects.WithLabelValues(program).Inc()
}

// RecordReconnectAlarm increments the reconnect alarms counter.
func RecordReconnectAlarm(program string) {
	DefaultMetrics.ReconnectAlarms.WithLabelValues(program).Inc()
}

// RecordMintDiscovered increments the mints discovered counter.
func RecordMintDiscovered() {
	DefaultMetrics.MintsDiscovered.Inc()
}

// RecordParseFailure increments the parse failures counter.
func RecordParseFailure() {
	DefaultMetrics.ParseFailures.Inc()
}

// RecordDuplicateMint increments the duplicate mints counter.
func RecordDuplicateMint() {
	DefaultMetrics.DuplicateMints.Inc()
}

// UpdateQueueDepth updates the depth gauge for one pipeline queue.
func UpdateQueueDepth(queue string, depth int) {
	DefaultMetrics.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordEnrichmentError records an enrichment error for a stage.
func RecordEnrichmentError(stage string) {
	DefaultMetrics.EnrichmentErrors.WithLabelValues(stage).Inc()
}

// RecordListingHit records a DEX listing match.
func RecordListingHit(venue string) {
	DefaultMetrics.ListingHits.WithLabelValues(venue).Inc()
}

// RecordTokenReported increments the tokens reported counter.
func RecordTokenReported() {
	DefaultMetrics.TokensReported.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
