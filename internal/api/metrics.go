package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus instruments exposed on /metrics.
//
// Each server carries its own registry rather than the package default,
// so repeated construction (tests, embedded use) never trips duplicate
// registration.
type metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	readingsStored     prometheus.Counter
	telemetryRejected  prometheus.Counter
	commandsEnqueued   prometheus.Counter
	commandsDispatched prometheus.Counter
	commandsAcked      prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agrolink_http_requests_total",
			Help: "HTTP requests served, by method and status code.",
		}, []string{"method", "status"}),
		readingsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "agrolink_readings_stored_total",
			Help: "Sensor readings committed to storage.",
		}),
		telemetryRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "agrolink_telemetry_rejected_total",
			Help: "Telemetry pushes rejected before any write.",
		}),
		commandsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "agrolink_commands_enqueued_total",
			Help: "Pump commands accepted for dispatch.",
		}),
		commandsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "agrolink_commands_dispatched_total",
			Help: "Pump commands handed to polling devices.",
		}),
		commandsAcked: factory.NewCounter(prometheus.CounterOpts{
			Name: "agrolink_commands_acknowledged_total",
			Help: "Pump commands confirmed executed by devices.",
		}),
	}
}

// handler returns the scrape endpoint for this server's registry.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
