package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	ArchiveOps         *prometheus.CounterVec
	ArchiveSize        prometheus.Gauge
	PagesProcessed     *prometheus.CounterVec
	ExtractionFailures prometheus.Counter
	WSClients          prometheus.Gauge
}

// NewMetrics registers the instruments on a fresh registry so that several
// instances (one per test) can coexist.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ArchiveOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_operations_total",
			Help:      "Archive operations by operation and result.",
		}, []string{"op", "result"}),
		ArchiveSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_messages",
			Help:      "Number of messages in the archive after the last operation.",
		}),
		PagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Host pages processed by mode.",
		}, []string{"mode"}),
		ExtractionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Inbox pages where at least one message could not be extracted.",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients.",
		}),
	}
}

// ObserveOp counts one archive operation.
func (m *Metrics) ObserveOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ArchiveOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
