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
	// Ledger metrics
	Contributions      prometheus.Counter
	ContributedAmount  prometheus.Counter
	Claims             prometheus.Counter
	ClaimedAmount      prometheus.Counter
	DustSwept          prometheus.Counter
	RejectedCalls      *prometheus.CounterVec
	TotalRaised        prometheus.Gauge
	PoolBuilt          prometheus.Gauge
	LPTotalAmount      prometheus.Gauge
	Participants       prometheus.Gauge
	CollaboratorErrors *prometheus.CounterVec

	// Latency metrics
	CollaboratorLatency *prometheus.HistogramVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Event fan-out metrics
	JournalErrors   prometheus.Counter
	PublishErrors   *prometheus.CounterVec
	WSClients       prometheus.Gauge
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_presale"
	}
	factory := promauto.With(reg)

	return &Metrics{
		Contributions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "contributions_total",
			Help:      "Total number of accepted contributions",
		}),
		ContributedAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "contributed_amount_total",
			Help:      "Total contributed amount in base units",
		}),
		Claims: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "claims_total",
			Help:      "Total number of settled claims",
		}),
		ClaimedAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "claimed_amount_total",
			Help:      "Total amount paid out by claims",
		}),
		DustSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "dust_swept_amount_total",
			Help:      "Total rounding remainder swept by the owner",
		}),
		RejectedCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rejected_calls_total",
			Help:      "Total number of rejected calls by operation and reason",
		}, []string{"operation", "reason"}),
		TotalRaised: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_raised",
			Help:      "Current total raised in base units",
		}),
		PoolBuilt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "pool_built",
			Help:      "1 once the distributable pool was built",
		}),
		LPTotalAmount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "lp_total_amount",
			Help:      "Distributable pool size",
		}),
		Participants: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "participants",
			Help:      "Number of participant records",
		}),
		CollaboratorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collaborator",
			Name:      "errors_total",
			Help:      "Failed external collaborator calls",
		}, []string{"collaborator"}),
		CollaboratorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collaborator",
			Name:      "call_duration_seconds",
			Help:      "External collaborator call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "journal_errors_total",
			Help:      "Journal appends that failed after an irreversible effect",
		}),
		PublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Failed event publications by sink",
		}, []string{"sink"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_clients",
			Help:      "Connected websocket subscribers",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Published ledger events by kind",
		}, []string{"kind"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordContribution records an accepted contribution.
func RecordContribution(amount uint64, totalRaised uint64, participants int) {
	DefaultMetrics.Contributions.Inc()
	DefaultMetrics.ContributedAmount.Add(float64(amount))
	DefaultMetrics.TotalRaised.Set(float64(totalRaised))
	DefaultMetrics.Participants.Set(float64(participants))
}

// RecordClaim records a settled claim.
func RecordClaim(amount uint64) {
	DefaultMetrics.Claims.Inc()
	DefaultMetrics.ClaimedAmount.Add(float64(amount))
}

// RecordPoolBuilt records the one-shot pool construction.
func RecordPoolBuilt(lpTotal uint64) {
	DefaultMetrics.PoolBuilt.Set(1)
	DefaultMetrics.LPTotalAmount.Set(float64(lpTotal))
}

// RecordDustSwept records a dust sweep.
func RecordDustSwept(amount uint64) {
	DefaultMetrics.DustSwept.Add(float64(amount))
}

// RecordRejected records a rejected call.
func RecordRejected(operation, reason string) {
	DefaultMetrics.RejectedCalls.WithLabelValues(operation, reason).Inc()
}

// RecordCollaboratorCall records latency and outcome of an external call.
func RecordCollaboratorCall(collaborator string, seconds float64, err error) {
	DefaultMetrics.CollaboratorLatency.WithLabelValues(collaborator).Observe(seconds)
	if err != nil {
		DefaultMetrics.CollaboratorErrors.WithLabelValues(collaborator).Inc()
	}
}

// RecordJournalError records a post-commit journal failure.
func RecordJournalError() {
	DefaultMetrics.JournalErrors.Inc()
}

// RecordPublish records an event publication outcome.
func RecordPublish(sink, kind string, err error) {
	if err != nil {
		DefaultMetrics.PublishErrors.WithLabelValues(sink).Inc()
		return
	}
	DefaultMetrics.EventsPublished.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an HTTP request duration.
func RecordHTTPRequest(route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// SetWSClients updates the websocket subscriber gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}
