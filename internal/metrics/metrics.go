package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photogram_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photogram_http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photogram_http_active_requests",
			Help: "Requests currently being served",
		},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photogram_auth_attempts_total",
			Help: "Authentication attempts by method and result",
		},
		[]string{"method", "result"}, // method: password, federated, reactivate
	)

	SocialActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photogram_social_actions_total",
			Help: "Successful social actions (post, like, comment, follow...)",
		},
		[]string{"action"},
	)

	MediaOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photogram_media_operations_total",
			Help: "Media host operations by provider, operation and result",
		},
		[]string{"provider", "operation", "result"},
	)

	MediaDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photogram_media_operation_duration_seconds",
			Help:    "Duration of media host operations",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
)

func RecordRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

func RecordAuth(method string, err error) {
	AuthAttempts.WithLabelValues(method, result(err)).Inc()
}

func RecordAction(action string) {
	SocialActions.WithLabelValues(action).Inc()
}

func RecordMedia(provider, op string, err error, d time.Duration) {
	MediaOperations.WithLabelValues(provider, op, result(err)).Inc()
	MediaDuration.WithLabelValues(provider, op).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
