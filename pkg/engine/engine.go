// Package engine combines the compliance scorer, the context rules and the
// policy table into a single RiskAssessment.
//
// The engine performs no I/O. Profiles, postures and access contexts are
// resolved by the caller and treated as read-only.
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gokaycavdar/go-riskguard/pkg/compliance"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
	"github.com/gokaycavdar/go-riskguard/pkg/policy"
	"github.com/gokaycavdar/go-riskguard/pkg/rules"
)

// Engine is the risk assessment engine.
//
// Usage:
//
//	eng := engine.New(engine.WithLogger(log))
//	eng.AddRule(myRule)
//	assessment := eng.AssessRisk(posture, access, profile, nil)
//
// An Engine is safe for concurrent use once configured; AddRule must not be
// called concurrently with assessments.
type Engine struct {
	rules     []rules.Rule
	bands     policy.Bands
	surcharge policy.TransactionSurcharge
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule table.
func WithRules(rs ...rules.Rule) Option {
	return func(e *Engine) { e.rules = append([]rules.Rule(nil), rs...) }
}

func WithBands(b policy.Bands) Option {
	return func(e *Engine) { e.bands = b }
}

func WithSurcharge(s policy.TransactionSurcharge) Option {
	return func(e *Engine) { e.surcharge = s }
}

// WithClock sets the time source used for update ages and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the source of assessment IDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine with the default rule table, bands and surcharge.
func New(opts ...Option) *Engine {
	e := &Engine{
		rules:     rules.Default(),
		bands:     policy.DefaultBands(),
		surcharge: policy.DefaultSurcharge(),
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule appends a rule. Rules are evaluated in the order they are added.
func (e *Engine) AddRule(r rules.Rule) {
	e.rules = append(e.rules, r)
}

// Rules returns the rule table in evaluation order.
func (e *Engine) Rules() []rules.Rule {
	return append([]rules.Rule(nil), e.rules...)
}

// ScoreDeviceCompliance returns the capped compliance risk of a posture.
func (e *Engine) ScoreDeviceCompliance(p models.DevicePosture) int {
	return compliance.Score(p, e.now())
}

// AssessRisk runs the full assessment: the compliance baseline (only when
// the posture carries a compliance score), every context rule, and the
// transaction surcharge. The level is taken from the unclamped total and the
// reported score is clamped to [0,100].
func (e *Engine) AssessRisk(p models.DevicePosture, a models.AccessContext, profile models.UserProfile, amount *float64) models.RiskAssessment {
	now := e.now()
	acc := accumulator{}

	if p.HasCompliance() {
		acc.addFactors(compliance.Evaluate(p, now).Factors)
	}

	in := rules.Input{Posture: p, Access: a, Profile: profile}
	for _, rule := range e.rules {
		out, fired := rule.Validate(in)
		if !fired {
			continue
		}
		acc.add(models.RiskFactor{
			Name:        rule.Name(),
			Description: out.Reason,
			Severity:    out.Severity,
			Weight:      out.Points,
		})
		acc.requireMFA = acc.requireMFA || out.RequireMFA
		acc.block = acc.block || out.Block
	}

	return e.finish(models.ModeFull, acc, p, profile, amount, now)
}

// AssessDevice runs the device-only assessment: compliance plus the
// transaction surcharge.
func (e *Engine) AssessDevice(p models.DevicePosture, profile models.UserProfile, amount *float64) models.RiskAssessment {
	now := e.now()
	acc := accumulator{}
	acc.addFactors(compliance.Evaluate(p, now).Factors)

	return e.finish(models.ModeDevice, acc, p, profile, amount, now)
}

func (e *Engine) finish(mode models.Mode, acc accumulator, p models.DevicePosture, profile models.UserProfile, amount *float64, now time.Time) models.RiskAssessment {
	if f, ok := e.surcharge.Apply(amount); ok {
		acc.add(f)
	}

	verdict := e.bands.Classify(acc.raw, profile.Tolerance())

	result := models.RiskAssessment{
		ID:          e.newID(),
		UserID:      profile.ID,
		DeviceID:    p.DeviceID,
		Mode:        mode,
		Score:       policy.Clamp(acc.raw),
		RawScore:    acc.raw,
		Level:       verdict.Level,
		Factors:     acc.factors,
		RequiresMFA: acc.requireMFA || verdict.RequireMFA,
		BlockAccess: acc.block || verdict.Block,
		Timestamp:   now,
	}
	if result.Factors == nil {
		result.Factors = []models.RiskFactor{}
	}

	e.logger.Debug("risk assessed",
		zap.String("assessment_id", result.ID),
		zap.String("user_id", result.UserID),
		zap.String("mode", string(mode)),
		zap.Int("score", result.Score),
		zap.Int("raw_score", result.RawScore),
		zap.String("level", string(result.Level)),
		zap.Int("factors", len(result.Factors)),
		zap.Bool("requires_mfa", result.RequiresMFA),
		zap.Bool("block_access", result.BlockAccess),
	)

	return result
}

type accumulator struct {
	raw        int
	factors    []models.RiskFactor
	requireMFA bool
	block      bool
}

func (a *accumulator) add(f models.RiskFactor) {
	a.raw += f.Weight
	a.factors = append(a.factors, f)
}

func (a *accumulator) addFactors(fs []models.RiskFactor) {
	for _, f := range fs {
		a.add(f)
	}
}

var defaultEngine = New()

// AssessRisk runs a full assessment with the default engine.
func AssessRisk(p models.DevicePosture, a models.AccessContext, profile models.UserProfile, amount *float64) models.RiskAssessment {
	return defaultEngine.AssessRisk(p, a, profile, amount)
}

// ScoreDeviceCompliance scores a posture with the default engine.
func ScoreDeviceCompliance(p models.DevicePosture) int {
	return defaultEngine.ScoreDeviceCompliance(p)
}
