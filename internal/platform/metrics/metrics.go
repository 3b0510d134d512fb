// Package metrics exposes Prometheus instrumentation for the procedure write
// path: saga outcomes per operation and compensation activity.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrumentation for the procedure write path.
type Metrics struct {
	registry *prometheus.Registry

	sagaTotal            *prometheus.CounterVec
	artifactsStaged      prometheus.Counter
	artifactsCompensated prometheus.Counter
	compensationFailures prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sagaTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "procedure_saga_total",
			Help: "Procedure saga requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		artifactsStaged: factory.NewCounter(prometheus.CounterOpts{
			Name: "procedure_artifacts_staged_total",
			Help: "Evidence artifacts staged ahead of a procedure transaction.",
		}),
		artifactsCompensated: factory.NewCounter(prometheus.CounterOpts{
			Name: "procedure_artifacts_compensated_total",
			Help: "Staged artifacts deleted after a failed procedure transaction.",
		}),
		compensationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "procedure_compensation_failures_total",
			Help: "Staged artifacts that could not be deleted during compensation.",
		}),
	}
}

// SagaOutcome records one finished saga request.
func (m *Metrics) SagaOutcome(operation, outcome string) {
	m.sagaTotal.WithLabelValues(operation, outcome).Inc()
}

// ArtifactStaged records one staged artifact.
func (m *Metrics) ArtifactStaged() { m.artifactsStaged.Inc() }

// ArtifactCompensated records one successfully compensated artifact.
func (m *Metrics) ArtifactCompensated() { m.artifactsCompensated.Inc() }

// CompensationFailure records a staged artifact that survived compensation.
func (m *Metrics) CompensationFailure() { m.compensationFailures.Inc() }

// Handler returns the echo handler serving the metrics endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
