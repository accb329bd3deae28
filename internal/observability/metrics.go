package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PushesQueuedTotal prometheus.Counter
	TasksEnqueued     prometheus.Counter
	DeliveriesTotal   *prometheus.CounterVec
	RetriesScheduled  prometheus.Counter
	TasksFailedTotal  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "push_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "push_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		PushesQueuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "push_messages_queued_total",
			Help: "Messages accepted by the push endpoint.",
		}),
		TasksEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "push_tasks_enqueued_total",
			Help: "Delivery tasks inserted into the delay queue.",
		}),
		DeliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Delivery attempts by result.",
		}, []string{"result"}),
		RetriesScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "push_retries_scheduled_total",
			Help: "Tasks re-queued with back-off.",
		}),
		TasksFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "push_tasks_failed_total",
			Help: "Tasks moved to the terminal fail state.",
		}),
	}
}

// ServeMetrics exposes the Prometheus registry on its own listener so the
// scrape endpoint never shares a port with the public API.
func ServeMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()

	return srv
}
