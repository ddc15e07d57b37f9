package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Read model metrics
	SyncReads      *prometheus.CounterVec
	SyncReadErrors *prometheus.CounterVec
	SyncDiscarded  *prometheus.CounterVec
	ChangeEvents   *prometheus.CounterVec

	// Remote data service metrics
	RemoteOperations *prometheus.CounterVec
	RemoteLatency    *prometheus.HistogramVec

	// Relay metrics
	RelayPublished prometheus.Counter
	RelayFailed    prometheus.Counter
	RelayRetries   *prometheus.CounterVec

	// Realtime push
	WebsocketClients prometheus.Gauge

	// HTTP metrics
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics on reg.
// A nil registerer means the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SyncReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "readmodel",
			Name:      "reads_total",
			Help:      "Total number of full table reads issued by the read model",
		}, []string{"table", "trigger"}),
		SyncReadErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "readmodel",
			Name:      "read_errors_total",
			Help:      "Full table reads that failed and were replaced by an empty collection",
		}, []string{"table"}),
		SyncDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "readmodel",
			Name:      "discarded_results_total",
			Help:      "Read results dropped because the table was closed or a newer read was applied",
		}, []string{"table"}),
		ChangeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "readmodel",
			Name:      "change_events_total",
			Help:      "Change notifications received per table",
		}, []string{"table", "type"}),

		RemoteOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "operations_total",
			Help:      "Total number of remote data service operations",
		}, []string{"operation", "table", "status"}),
		RemoteLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "operation_duration_seconds",
			Help:      "Duration of remote data service operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),

		RelayPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "events_published_total",
			Help:      "Change events forwarded to the broker",
		}),
		RelayFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "events_failed_total",
			Help:      "Change events dropped after all retries",
		}),
		RelayRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "retry_attempts_total",
			Help:      "Publish retries per table",
		}, []string{"table"}),

		WebsocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients",
		}),

		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// NewTest returns metrics on a private registry so tests can build many.
func NewTest() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
