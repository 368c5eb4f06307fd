package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"path", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "request_duration_seconds",
			Help:      "Request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	// AuthEvents counts account operations by result.
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "videotube",
			Name:      "auth_events_total",
			Help:      "Authentication events by type and outcome",
		},
		[]string{"event", "outcome"},
	)
)

const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventRefresh        = "refresh"
	EventChangePassword = "change_password"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, AuthEvents)
}

// Auth records one authentication event.
func Auth(event, outcome string) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
}
