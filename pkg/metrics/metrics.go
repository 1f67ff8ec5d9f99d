// Package metrics provides Prometheus metrics for risk assessments and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gokaycavdar/go-riskguard/pkg/apperr"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

const namespace = "riskguard"

// Metrics holds every collector, registered against one registerer.
type Metrics struct {
	gatherer prometheus.Gatherer

	assessmentsTotal *prometheus.CounterVec
	riskScore        *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	factorsTotal     *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Use prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		assessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessments_total",
				Help:      "Total number of risk assessments by mode and level",
			},
			[]string{"mode", "level"},
		),

		riskScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "risk_score",
				Help:      "Distribution of clamped risk scores",
				Buckets:   []float64{0, 10, 20, 35, 50, 75, 100},
			},
			[]string{"mode", "decision"},
		),

		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessment_errors_total",
				Help:      "Total number of failed assessments by error code",
			},
			[]string{"code"},
		),

		factorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "factors_total",
				Help:      "Total number of times each risk factor fired",
			},
			[]string{"factor"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveAssessment records a completed assessment.
func (m *Metrics) ObserveAssessment(a models.RiskAssessment) {
	m.assessmentsTotal.WithLabelValues(string(a.Mode), string(a.Level)).Inc()
	m.riskScore.WithLabelValues(string(a.Mode), string(a.Decision())).Observe(float64(a.Score))
	for _, f := range a.Factors {
		m.factorsTotal.WithLabelValues(f.Name).Inc()
	}
}

// ObserveError records a failed assessment.
func (m *Metrics) ObserveError(err error) {
	m.errorsTotal.WithLabelValues(string(apperr.CodeOf(err))).Inc()
}

// GinMiddleware records request count and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
