package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Upstream metrics
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moeno_upstream_requests_total",
			Help: "Total number of requests to remote services by service and status",
		},
		[]string{"service", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moeno_upstream_request_duration_seconds",
			Help:    "Remote service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Email metrics
	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moeno_emails_sent_total",
			Help: "Total number of template emails dispatched by template and result",
		},
		[]string{"template", "result"},
	)

	// Access metrics
	AccessClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moeno_access_classifications_total",
			Help: "Total number of signed-in identities classified by role",
		},
		[]string{"role"},
	)

	// API metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moeno_http_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(EmailsSentTotal)
	prometheus.MustRegister(AccessClassificationsTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// ObserveUpstream records one call to a remote service. status is 0 when no answer came back.
func ObserveUpstream(service string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(service, label).Inc()
	UpstreamRequestDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
