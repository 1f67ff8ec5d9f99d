// Package assessment resolves the inputs of a risk assessment, runs the
// engine and reports the outcome. It is the only place where missing users
// or devices become errors; the engine itself never sees them.
package assessment

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gokaycavdar/go-riskguard/pkg/apperr"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
	"github.com/gokaycavdar/go-riskguard/pkg/storage"
)

// Assessor is the scoring surface of the engine.
type Assessor interface {
	AssessRisk(p models.DevicePosture, a models.AccessContext, profile models.UserProfile, amount *float64) models.RiskAssessment
	AssessDevice(p models.DevicePosture, profile models.UserProfile, amount *float64) models.RiskAssessment
}

// Recorder receives assessment outcomes, typically Prometheus metrics.
type Recorder interface {
	ObserveAssessment(a models.RiskAssessment)
	ObserveError(err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAssessment(models.RiskAssessment) {}
func (nopRecorder) ObserveError(error)                      {}

// Request describes one assessment.
type Request struct {
	UserID string `json:"userId"`

	// DeviceID selects a stored posture when Posture is nil. It falls back
	// to the profile's default device.
	DeviceID string `json:"deviceId,omitempty"`

	Posture *models.DevicePosture `json:"devicePosture,omitempty"`

	// Access switches the assessment to full mode. Without it only the
	// device compliance path runs.
	Access *models.AccessContext `json:"accessContext,omitempty"`

	TransactionAmount *float64 `json:"transactionAmount,omitempty"`
}

// PostureReport is a stored posture with its device-only assessment.
type PostureReport struct {
	Posture    models.DevicePosture  `json:"posture"`
	Assessment models.RiskAssessment `json:"assessment"`
}

// Service runs assessments against the profile and device stores.
type Service struct {
	profiles storage.ProfileStore
	devices  storage.DeviceStore
	engine   Assessor
	recorder Recorder
	logger   *zap.Logger
}

// NewService creates a Service. recorder may be nil.
func NewService(profiles storage.ProfileStore, devices storage.DeviceStore, engine Assessor, recorder Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		devices:  devices,
		engine:   engine,
		recorder: recorder,
		logger:   logger,
	}
}

// Assess resolves the profile and posture for req and scores them.
//
// A user or device that cannot be resolved is a NOT_FOUND error, never a
// zero-risk result. Malformed typed input is INVALID_INPUT and store
// failures are INTERNAL_ERROR.
func (s *Service) Assess(ctx context.Context, req Request) (*models.RiskAssessment, error) {
	result, err := s.assess(ctx, req)
	if err != nil {
		s.recorder.ObserveError(err)
		s.logFailure(req, err)
		return nil, err
	}

	s.recorder.ObserveAssessment(*result)

	fields := []zap.Field{
		zap.String("assessment_id", result.ID),
		zap.String("user_id", result.UserID),
		zap.String("mode", string(result.Mode)),
		zap.Int("score", result.Score),
		zap.String("level", string(result.Level)),
		zap.String("decision", string(result.Decision())),
	}
	if result.Level != models.RiskLow {
		fields = append(fields, zap.Strings("reasons", result.Reasons()))
	}
	s.logger.Info("risk assessment completed", fields...)

	return result, nil
}

func (s *Service) assess(ctx context.Context, req Request) (*models.RiskAssessment, error) {
	if req.UserID == "" {
		return nil, apperr.InvalidInput("userId is required", nil)
	}
	if req.TransactionAmount != nil {
		amount := *req.TransactionAmount
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return nil, apperr.InvalidInput("transactionAmount must be a finite number", nil)
		}
		if amount < 0 {
			return nil, apperr.InvalidInput("transactionAmount must not be negative", nil)
		}
	}

	profile, err := s.profile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.RiskTolerance.Valid() {
		return nil, apperr.InvalidInput("invalid user profile", nil).
			WithDetails(fmt.Sprintf("unknown riskTolerance %q", profile.RiskTolerance))
	}

	posture, err := s.posture(ctx, req, profile)
	if err != nil {
		return nil, err
	}
	if err := posture.Validate(); err != nil {
		return nil, err
	}

	var result models.RiskAssessment
	if req.Access != nil {
		if err := req.Access.Validate(); err != nil {
			return nil, err
		}
		result = s.engine.AssessRisk(posture, *req.Access, *profile, req.TransactionAmount)
	} else {
		result = s.engine.AssessDevice(posture, *profile, req.TransactionAmount)
	}

	return &result, nil
}

func (s *Service) profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load user profile", err)
	}
	if profile == nil {
		return nil, apperr.NotFound("user profile").WithDetails(userID)
	}
	return profile, nil
}

func (s *Service) posture(ctx context.Context, req Request, profile *models.UserProfile) (models.DevicePosture, error) {
	if req.Posture != nil {
		p := *req.Posture
		if p.DeviceID == "" {
			p.DeviceID = req.DeviceID
		}
		return p, nil
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = profile.DeviceID
	}
	if deviceID == "" {
		return models.DevicePosture{}, apperr.NotFound("device posture").WithDetails("no device for user " + profile.ID)
	}

	p, err := s.lookupPosture(ctx, deviceID)
	if err != nil {
		return models.DevicePosture{}, err
	}
	return *p, nil
}

func (s *Service) lookupPosture(ctx context.Context, deviceID string) (*models.DevicePosture, error) {
	p, err := s.devices.GetPosture(ctx, deviceID)
	if err != nil {
		return nil, apperr.Internal("failed to load device posture", err)
	}
	if p == nil {
		return nil, apperr.NotFound("device posture").WithDetails(deviceID)
	}
	return p, nil
}

// DevicePosture returns a stored posture with its device-only assessment.
func (s *Service) DevicePosture(ctx context.Context, deviceID string) (*PostureReport, error) {
	p, err := s.lookupPosture(ctx, deviceID)
	if err != nil {
		s.logFailure(Request{DeviceID: deviceID}, err)
		return nil, err
	}

	return &PostureReport{
		Posture:    *p,
		Assessment: s.engine.AssessDevice(*p, models.UserProfile{}, nil),
	}, nil
}

// RegisterPosture validates and stores a device posture.
func (s *Service) RegisterPosture(ctx context.Context, p models.DevicePosture) error {
	if p.DeviceID == "" {
		return apperr.InvalidInput("deviceId is required", nil)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.devices.SavePosture(ctx, &p); err != nil {
		return apperr.Internal("failed to store device posture", err)
	}
	return nil
}

// RegisterProfile validates and stores a user profile.
func (s *Service) RegisterProfile(ctx context.Context, profile models.UserProfile) error {
	if profile.ID == "" {
		return apperr.InvalidInput("user id is required", nil)
	}
	if !profile.RiskTolerance.Valid() {
		return apperr.InvalidInput("invalid user profile", nil).
			WithDetails(fmt.Sprintf("unknown riskTolerance %q", profile.RiskTolerance))
	}
	if err := s.profiles.SaveProfile(ctx, &profile); err != nil {
		return apperr.Internal("failed to store user profile", err)
	}
	return nil
}

// RememberAccess adds the fingerprint and country of an allowed access to
// the user's known sets. Call it only after access was granted.
func (s *Service) RememberAccess(ctx context.Context, userID string, p models.DevicePosture, a *models.AccessContext) error {
	if p.Fingerprint != nil && *p.Fingerprint != "" {
		if err := s.profiles.RememberDevice(ctx, userID, *p.Fingerprint); err != nil {
			return apperr.Internal("failed to remember device", err)
		}
	}
	if a != nil && a.Country != nil && *a.Country != "" {
		if err := s.profiles.RememberCountry(ctx, userID, *a.Country); err != nil {
			return apperr.Internal("failed to remember country", err)
		}
	}
	return nil
}

func (s *Service) logFailure(req Request, err error) {
	fields := []zap.Field{
		zap.String("user_id", req.UserID),
		zap.String("device_id", req.DeviceID),
		zap.Error(err),
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeInternal:
		s.logger.Error("risk assessment failed", fields...)
	default:
		s.logger.Info("risk assessment rejected", fields...)
	}
}
