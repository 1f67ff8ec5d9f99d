// Package api exposes risk assessments over HTTP with gin.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gokaycavdar/go-riskguard/pkg/apperr"
	"github.com/gokaycavdar/go-riskguard/pkg/assessment"
	"github.com/gokaycavdar/go-riskguard/pkg/collector"
	"github.com/gokaycavdar/go-riskguard/pkg/logger"
	"github.com/gokaycavdar/go-riskguard/pkg/metrics"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

// Request headers read by the access gate.
const (
	HeaderUserID         = "X-User-ID"
	HeaderMFAVerified    = "X-MFA-Verified"
	HeaderClientTimezone = "X-Client-Timezone"
)

// Handler serves the risk API.
type Handler struct {
	svc       *assessment.Service
	collector *collector.AccessCollector
	logger    *zap.Logger
}

// NewHandler creates a Handler. access may be nil, in which case the access
// gate relies on the x-access-context header alone.
func NewHandler(svc *assessment.Service, access *collector.AccessCollector, log *zap.Logger) *Handler {
	return &Handler{svc: svc, collector: access, logger: log}
}

// NewRouter wires the routes and middleware. m may be nil.
func NewRouter(h *Handler, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(h.logger))
	if m != nil {
		r.Use(m.GinMiddleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	v1.POST("/risk-assessment", h.assess)
	v1.POST("/access/validate", h.validateAccess)
	v1.GET("/device-posture/:deviceId", h.getDevicePosture)
	v1.PUT("/device-posture/:deviceId", h.putDevicePosture)
	v1.PUT("/users/:userId/profile", h.putProfile)

	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) assess(c *gin.Context) {
	var req assessment.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidInput("invalid request body", err).WithDetails(err.Error()))
		return
	}
	c.Set("user_id", req.UserID)

	result, err := h.svc.Assess(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessmentResponse(result))
}

// validateAccess gates a request on its assessment: 403 when blocked, 401
// when step-up is required and not yet done, 200 otherwise. Only allowed
// accesses update the user's known devices, countries and login history.
func (h *Handler) validateAccess(c *gin.Context) {
	userID := c.GetHeader(HeaderUserID)
	if userID == "" {
		respondError(c, apperr.InvalidInput(HeaderUserID+" header is required", nil))
		return
	}
	c.Set("user_id", userID)
	ctx := c.Request.Context()

	dc := collector.ParseDeviceContext(
		c.GetHeader(collector.HeaderDevicePosture),
		c.GetHeader(collector.HeaderAccessContext),
		h.logger,
	)

	var record *models.LoginRecord
	access := dc.Access
	if access == nil && h.collector != nil {
		collected, rec := h.collector.Collect(ctx, collector.AccessInput{
			UserID:         userID,
			IPAddress:      c.ClientIP(),
			ClientTimezone: c.GetHeader(HeaderClientTimezone),
		})
		access, record = &collected, rec
	}
	if access == nil {
		access = &models.AccessContext{}
	}

	result, err := h.svc.Assess(ctx, assessment.Request{
		UserID:  userID,
		Posture: &dc.Posture,
		Access:  access,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	switch {
	case result.BlockAccess:
		h.logger.Warn("access blocked",
			zap.String("user_id", userID),
			zap.Int("score", result.Score),
			zap.Strings("reasons", result.Reasons()))
		c.JSON(http.StatusForbidden, gin.H{
			"error":      "Access denied due to high risk",
			"assessment": assessmentResponse(result),
		})
		return
	case result.RequiresMFA && c.GetHeader(HeaderMFAVerified) != "true":
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":       "Additional verification required",
			"requiresMFA": true,
			"assessment":  assessmentResponse(result),
		})
		return
	}

	if result.Level != models.RiskLow {
		h.logger.Info("risk accepted",
			zap.String("user_id", userID),
			zap.Int("score", result.Score),
			zap.String("level", string(result.Level)),
			zap.Bool("mfa_verified", result.RequiresMFA),
			zap.Strings("reasons", result.Reasons()))
	}

	if err := h.svc.RememberAccess(ctx, userID, dc.Posture, access); err != nil {
		h.logger.Error("failed to remember access", zap.String("user_id", userID), zap.Error(err))
	}
	if h.collector != nil {
		if err := h.collector.Remember(ctx, record); err != nil {
			h.logger.Error("failed to store login history", zap.String("user_id", userID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed":    true,
		"assessment": assessmentResponse(result),
	})
}

func (h *Handler) getDevicePosture(c *gin.Context) {
	report, err := h.svc.DevicePosture(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posture":         report.Posture,
		"complianceScore": report.Assessment.Score,
		"riskLevel":       report.Assessment.Level.Lower(),
		"factors":         report.Assessment.Factors,
	})
}

func (h *Handler) putDevicePosture(c *gin.Context) {
	var p models.DevicePosture
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, apperr.InvalidInput("invalid device posture", err).WithDetails(err.Error()))
		return
	}
	p.DeviceID = c.Param("deviceId")

	if err := h.svc.RegisterPosture(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) putProfile(c *gin.Context) {
	var p models.UserProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, apperr.InvalidInput("invalid user profile", err).WithDetails(err.Error()))
		return
	}
	p.ID = c.Param("userId")

	if err := h.svc.RegisterProfile(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type assessmentBody struct {
	models.RiskAssessment
	Decision models.Decision `json:"decision"`
	Reasons  []string        `json:"reasons"`
}

func assessmentResponse(a *models.RiskAssessment) assessmentBody {
	return assessmentBody{RiskAssessment: *a, Decision: a.Decision(), Reasons: a.Reasons()}
}

func respondError(c *gin.Context, err error) {
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("internal error", err)
	}
	c.JSON(apperr.StatusCode(appErr), gin.H{"error": appErr})
}
