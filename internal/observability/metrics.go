// README: Prometheus metrics for matching, dispatch, lifecycle and fanout.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "matches_total",
		Help: "Candidate searches performed",
	})
	MatchesEmptyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "matches_empty_total",
		Help: "Candidate searches that produced no drivers",
	})
	InvitesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "invites_sent_total",
		Help: "Ride invites pushed to driver channels",
	})
	ClaimsWonTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "claims_won_total",
		Help: "Accept attempts that won the claim race",
	})
	ClaimsLostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "claims_lost_total",
		Help: "Accept attempts rejected on conflict or authorization",
	})
	LifecycleTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ryde", Name: "lifecycle_transitions_total",
		Help: "Ride status transitions by target state",
	}, []string{"to"})
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ryde", Name: "notifications_total",
		Help: "Notifications delivered by transport",
	}, []string{"transport"})
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "notification_failures_total",
		Help: "Notification deliveries that failed",
	})
	DriversOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ryde", Name: "drivers_online",
		Help: "Drivers currently marked online in the location index",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ryde", Name: "http_requests_total",
		Help: "HTTP requests handled",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ryde", Name: "http_request_duration_seconds",
		Help:    "HTTP request latency distribution",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
