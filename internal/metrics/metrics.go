package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_http_requests_total",
		Help: "HTTP requests served, labelled by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventhub_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	NotificationsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_notifications_written_total",
		Help: "Notifications persisted by the fan-out dispatcher, labelled by type.",
	}, []string{"type"})

	NotificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_notifications_failed_total",
		Help: "Notifications lost to a failed batch write, labelled by type.",
	}, []string{"type"})

	FanOutInline = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhub_fanout_inline_total",
		Help: "Fan-out batches delivered on the request path because the queue was full or closed.",
	})

	FanOutQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventhub_fanout_queue_utilization_ratio",
		Help: "Current fan-out queue utilization (0–1).",
	})

	AttendanceChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_attendance_changes_total",
		Help: "Successful attendance confirmations and cancellations.",
	}, []string{"action"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
