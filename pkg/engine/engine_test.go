package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
	"github.com/gokaycavdar/go-riskguard/pkg/policy"
	"github.com/gokaycavdar/go-riskguard/pkg/rules"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "assessment-1" }),
	}
	return New(append(base, opts...)...)
}

func userProfile(tol models.RiskTolerance) models.UserProfile {
	return models.UserProfile{
		ID:             "user-1",
		KnownCountries: []string{"US", "UK"},
		RiskTolerance:  tol,
	}
}

func nominal() (models.DevicePosture, models.AccessContext) {
	return models.DevicePosture{IsKnownDevice: models.Bool(true)},
		models.AccessContext{Country: models.String("US")}
}

func factorNames(a models.RiskAssessment) []string {
	names := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		names = append(names, f.Name)
	}
	return names
}

func TestNewCountryOnUnknownDeviceWithLowTolerance(t *testing.T) {
	eng := newTestEngine()

	res := eng.AssessRisk(
		models.DevicePosture{IsKnownDevice: models.Bool(false)},
		models.AccessContext{Country: models.String("NG")},
		userProfile(models.ToleranceLow),
		nil,
	)

	assert.Equal(t, 35, res.Score)
	assert.Equal(t, models.RiskHigh, res.Level)
	assert.True(t, res.RequiresMFA)
	assert.False(t, res.BlockAccess)
	assert.Equal(t, []string{"Unknown device (first login)", "New country detected (NG)"}, res.Reasons())
	assert.Equal(t, models.ModeFull, res.Mode)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, "assessment-1", res.ID)
	assert.Equal(t, fixedNow, res.Timestamp)
}

func TestNominalInputScoresZero(t *testing.T) {
	p, a := nominal()

	res := newTestEngine().AssessRisk(p, a, userProfile(models.ToleranceLow), nil)

	assert.Equal(t, 0, res.Score)
	assert.Equal(t, models.RiskLow, res.Level)
	assert.NotNil(t, res.Factors)
	assert.Empty(t, res.Factors)
	assert.False(t, res.RequiresMFA)
	assert.False(t, res.BlockAccess)
	assert.Equal(t, models.DecisionAllow, res.Decision())
}

func TestImpossibleTravelIsCritical(t *testing.T) {
	p, a := nominal()
	a.ImpossibleTravel = models.Bool(true)

	res := newTestEngine().AssessRisk(p, a, userProfile(models.ToleranceHigh), nil)

	assert.Equal(t, 50, res.Score)
	assert.Equal(t, models.RiskCritical, res.Level)
	assert.True(t, res.BlockAccess)
	assert.Equal(t, models.DecisionDeny, res.Decision())
}

func TestTorBlocksMediumTolerance(t *testing.T) {
	p, a := nominal()
	a.IsTor = models.Bool(true)

	res := newTestEngine().AssessRisk(p, a, userProfile(models.ToleranceMedium), nil)

	assert.Equal(t, 30, res.Score)
	assert.Equal(t, models.RiskMedium, res.Level)
	assert.True(t, res.BlockAccess)
}

func TestRuleFlagsSurviveLowBand(t *testing.T) {
	p, a := nominal()
	p.OSVersion = models.String("Windows 7")

	res := newTestEngine().AssessRisk(p, a, userProfile(models.ToleranceHigh), nil)

	assert.Equal(t, models.RiskMedium, res.Level)
	assert.True(t, res.RequiresMFA, "outdated OS always steps up")
}

func TestScoreIsClampedButLevelUsesRawScore(t *testing.T) {
	p := models.DevicePosture{
		IsKnownDevice:      models.Bool(false),
		IsJailbroken:       models.Bool(true),
		DiskEncrypted:      models.Bool(false),
		Antivirus:          models.Bool(false),
		FirewallEnabled:    models.Bool(false),
		OSVersion:          models.String("Windows 8"),
		Fingerprint:        models.String("fp-new"),
		LastSecurityUpdate: models.Time(fixedNow.AddDate(0, -6, 0)),
		ComplianceScore:    models.Int(10),
	}
	a := models.AccessContext{
		ImpossibleTravel: models.Bool(true),
		IsVPN:            models.Bool(true),
		IsTor:            models.Bool(true),
		IPReputation:     models.Int(5),
		Country:          models.String("NG"),
	}

	res := newTestEngine().AssessRisk(p, a, userProfile(models.ToleranceHigh), models.Float(90000))

	assert.Equal(t, 100, res.Score)
	assert.Greater(t, res.RawScore, 100)
	assert.Equal(t, models.RiskCritical, res.Level)
	assert.True(t, res.BlockAccess)
	assert.True(t, res.RequiresMFA)

	sum := 0
	for _, f := range res.Factors {
		sum += f.Weight
	}
	assert.Equal(t, res.RawScore, sum)
}

func TestIdempotent(t *testing.T) {
	eng := newTestEngine()
	p := models.DevicePosture{Fingerprint: models.String("fp-x"), IsJailbroken: models.Bool(true)}
	a := models.AccessContext{IsVPN: models.Bool(true), Country: models.String("DE")}
	profile := userProfile(models.ToleranceLow)

	first := eng.AssessRisk(p, a, profile, nil)
	second := eng.AssessRisk(p, a, profile, nil)

	assert.Equal(t, first, second)
}

func TestMonotonic(t *testing.T) {
	eng := newTestEngine()
	profile := userProfile(models.ToleranceMedium)

	increases := []struct {
		name   string
		mutate func(p *models.DevicePosture, a *models.AccessContext)
	}{
		{"vpn", func(_ *models.DevicePosture, a *models.AccessContext) { a.IsVPN = models.Bool(true) }},
		{"tor", func(_ *models.DevicePosture, a *models.AccessContext) { a.IsTor = models.Bool(true) }},
		{"travel", func(_ *models.DevicePosture, a *models.AccessContext) { a.ImpossibleTravel = models.Bool(true) }},
		{"reputation", func(_ *models.DevicePosture, a *models.AccessContext) { a.IPReputation = models.Int(10) }},
		{"country", func(_ *models.DevicePosture, a *models.AccessContext) { a.Country = models.String("BR") }},
		{"jailbreak", func(p *models.DevicePosture, _ *models.AccessContext) { p.IsJailbroken = models.Bool(true) }},
		{"unknown device", func(p *models.DevicePosture, _ *models.AccessContext) { p.IsKnownDevice = models.Bool(false) }},
		{"disk", func(p *models.DevicePosture, _ *models.AccessContext) { p.DiskEncrypted = models.Bool(false) }},
		{"antivirus", func(p *models.DevicePosture, _ *models.AccessContext) { p.Antivirus = models.Bool(false) }},
		{"fingerprint", func(p *models.DevicePosture, _ *models.AccessContext) { p.Fingerprint = models.String("fp-new") }},
	}

	p, a := nominal()
	prev := eng.AssessRisk(p, a, profile, nil)
	for _, inc := range increases {
		inc.mutate(&p, &a)
		next := eng.AssessRisk(p, a, profile, nil)
		assert.GreaterOrEqual(t, next.Score, prev.Score, inc.name)
		assert.GreaterOrEqual(t, next.Level.Rank(), prev.Level.Rank(), inc.name)
		prev = next
	}
}

func TestComplianceBaselineOnlyWithComplianceScore(t *testing.T) {
	eng := newTestEngine()
	_, a := nominal()
	p := models.DevicePosture{
		IsKnownDevice:      models.Bool(true),
		FirewallEnabled:    models.Bool(true),
		Antivirus:          models.Bool(true),
		DiskEncrypted:      models.Bool(true),
		LastSecurityUpdate: models.Time(fixedNow.AddDate(0, 0, -2)),
		ComplianceScore:    models.Int(60),
	}

	res := eng.AssessRisk(p, a, userProfile(models.ToleranceLow), nil)
	assert.Equal(t, 20, res.Score)
	assert.Equal(t, models.RiskMedium, res.Level)
	assert.True(t, res.RequiresMFA)
	assert.Equal(t, []string{"Low Compliance Score"}, factorNames(res))

	p.ComplianceScore = nil
	res = eng.AssessRisk(p, a, userProfile(models.ToleranceLow), nil)
	assert.Equal(t, 0, res.Score)
}

func TestFactorOrder(t *testing.T) {
	eng := newTestEngine()
	p := models.DevicePosture{
		IsKnownDevice:      models.Bool(false),
		FirewallEnabled:    models.Bool(true),
		Antivirus:          models.Bool(true),
		DiskEncrypted:      models.Bool(true),
		LastSecurityUpdate: models.Time(fixedNow),
		ComplianceScore:    models.Int(80),
	}
	_, a := nominal()

	res := eng.AssessRisk(p, a, userProfile(models.ToleranceMedium), models.Float(60000))

	assert.Equal(t, []string{"Low Compliance Score", "Unknown Device", "High Transaction Amount"}, factorNames(res))
	assert.Equal(t, 10+15+25, res.Score)
	assert.Equal(t, models.RiskCritical, res.Level)
}

func TestAssessDevice(t *testing.T) {
	eng := newTestEngine()
	p := models.DevicePosture{
		DeviceID:           "dev-1",
		FirewallEnabled:    models.Bool(false),
		Antivirus:          models.Bool(false),
		DiskEncrypted:      models.Bool(false),
		LastSecurityUpdate: models.Time(fixedNow.AddDate(0, 0, -91)),
		ComplianceScore:    models.Int(10),
	}

	res := eng.AssessDevice(p, userProfile(models.ToleranceMedium), models.Float(75000))

	assert.Equal(t, models.ModeDevice, res.Mode)
	assert.Equal(t, "dev-1", res.DeviceID)
	assert.Equal(t, 125, res.RawScore)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, models.RiskCritical, res.Level)
	assert.True(t, res.BlockAccess)
	require.Len(t, res.Factors, 6)
	assert.Equal(t, "High Transaction Amount", res.Factors[5].Name)
}

func TestScoreDeviceCompliance(t *testing.T) {
	p := models.DevicePosture{
		FirewallEnabled:    models.Bool(false),
		Antivirus:          models.Bool(false),
		DiskEncrypted:      models.Bool(false),
		LastSecurityUpdate: models.Time(fixedNow.AddDate(0, 0, -100)),
		ComplianceScore:    models.Int(10),
	}

	assert.Equal(t, 100, newTestEngine().ScoreDeviceCompliance(p))
	assert.Equal(t, 100, ScoreDeviceCompliance(p))
}

func TestCustomConfiguration(t *testing.T) {
	eng := newTestEngine(
		WithRules(rules.NewVPNCheckRule(40)),
		WithBands(policy.Bands{Critical: 80, High: 60, Medium: 30}),
		WithSurcharge(policy.TransactionSurcharge{Threshold: 100, Points: 5}),
	)
	eng.AddRule(rules.NewTorRule(10))
	require.Len(t, eng.Rules(), 2)

	res := eng.AssessRisk(
		models.DevicePosture{},
		models.AccessContext{IsVPN: models.Bool(true)},
		userProfile(models.ToleranceHigh),
		models.Float(101),
	)

	assert.Equal(t, 45, res.Score)
	assert.Equal(t, models.RiskMedium, res.Level)
	assert.False(t, res.RequiresMFA)
}

func TestVerdictIsLoggedAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	eng := newTestEngine(WithLogger(zap.New(core)))
	p, a := nominal()

	eng.AssessRisk(p, a, userProfile(models.ToleranceLow), nil)

	entries := logs.FilterMessage("risk assessed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "LOW", entries[0].ContextMap()["level"])
	assert.Equal(t, "full", entries[0].ContextMap()["mode"])
}

func TestPackageLevelAssessRisk(t *testing.T) {
	p, a := nominal()
	a.IsTor = models.Bool(true)

	res := AssessRisk(p, a, userProfile(models.ToleranceLow), nil)

	assert.True(t, res.BlockAccess)
	assert.NotEmpty(t, res.ID)
}
