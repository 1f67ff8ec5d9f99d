package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/gokaycavdar/go-riskguard/pkg/apperr"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

func TestObserveAssessment(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAssessment(models.RiskAssessment{
		Mode:        models.ModeFull,
		Level:       models.RiskHigh,
		Score:       35,
		RequiresMFA: true,
		Factors: []models.RiskFactor{
			{Name: "Unknown Device", Weight: 15},
			{Name: "New Country", Weight: 20},
		},
	})
	m.ObserveAssessment(models.RiskAssessment{Mode: models.ModeFull, Level: models.RiskLow})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.assessmentsTotal.WithLabelValues("full", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assessmentsTotal.WithLabelValues("full", "LOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.factorsTotal.WithLabelValues("New Country")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.riskScore))
}

func TestObserveError(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveError(apperr.NotFound("user profile"))
	m.ObserveError(apperr.NotFound("device posture"))
	m.ObserveError(assert.AnError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("INTERNAL_ERROR")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/health", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "riskguard_http_requests_total")
}
