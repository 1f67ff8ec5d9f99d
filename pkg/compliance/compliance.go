// Package compliance scores a device posture snapshot against fixed
// compliance weights.
//
// Points accumulate additively and the total is capped at 100:
//
//	firewall not enabled          +20
//	antivirus not enabled         +20
//	disk encryption not enabled   +15
//	last update > 90 days         +10  (> 30 days: +5)
//	compliance score < 50         +35  (< 75: +20, < 90: +10)
//
// A nil firewall, antivirus or encryption flag counts as not enabled.
// A missing last-update date counts as stale. A missing compliance score
// contributes nothing.
package compliance

import (
	"fmt"
	"time"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

const (
	MaxScore = 100

	firewallPoints   = 20
	antivirusPoints  = 20
	encryptionPoints = 15

	staleUpdateDays   = 90
	agingUpdateDays   = 30
	staleUpdatePoints = 10
	agingUpdatePoints = 5
)

type complianceBand struct {
	below    int
	points   int
	severity models.Severity
}

// Evaluated in order; the first band whose bound is above the score applies.
var complianceBands = []complianceBand{
	{below: 50, points: 35, severity: models.SeverityHigh},
	{below: 75, points: 20, severity: models.SeverityMedium},
	{below: 90, points: 10, severity: models.SeverityLow},
}

// Result is the outcome of a compliance evaluation.
type Result struct {
	// Score is RawScore capped at 100.
	Score    int
	RawScore int
	Factors  []models.RiskFactor
}

// Evaluate scores p as of now and itemises every penalty.
func Evaluate(p models.DevicePosture, now time.Time) Result {
	var res Result

	add := func(points int, f models.RiskFactor) {
		f.Weight = points
		res.RawScore += points
		res.Factors = append(res.Factors, f)
	}

	if !enabled(p.FirewallEnabled) {
		add(firewallPoints, models.RiskFactor{
			Name:        "Firewall Disabled",
			Description: "Device firewall is not enabled",
			Severity:    models.SeverityHigh,
		})
	}

	if !enabled(p.Antivirus) {
		add(antivirusPoints, models.RiskFactor{
			Name:        "Antivirus Disabled",
			Description: "Device antivirus protection is not enabled",
			Severity:    models.SeverityHigh,
		})
	}

	if !enabled(p.DiskEncrypted) {
		add(encryptionPoints, models.RiskFactor{
			Name:        "Disk Encryption Disabled",
			Description: "Device disk encryption is not enabled",
			Severity:    models.SeverityMedium,
		})
	}

	if days, known := DaysSinceUpdate(p.LastSecurityUpdate, now); days > staleUpdateDays {
		desc := fmt.Sprintf("Last security update was %d days ago", days)
		if !known {
			desc = "Last security update date is unknown"
		}
		add(staleUpdatePoints, models.RiskFactor{
			Name:        "Outdated Security Updates",
			Description: desc,
			Severity:    models.SeverityMedium,
		})
	} else if days > agingUpdateDays {
		add(agingUpdatePoints, models.RiskFactor{
			Name:        "Outdated Security Updates",
			Description: fmt.Sprintf("Last security update was %d days ago", days),
			Severity:    models.SeverityLow,
		})
	}

	if p.ComplianceScore != nil {
		for _, band := range complianceBands {
			if *p.ComplianceScore < band.below {
				add(band.points, models.RiskFactor{
					Name:        "Low Compliance Score",
					Description: fmt.Sprintf("Device compliance score is %d%%", *p.ComplianceScore),
					Severity:    band.severity,
				})
				break
			}
		}
	}

	res.Score = min(res.RawScore, MaxScore)
	return res
}

// Score returns the capped compliance risk score of p as of now.
func Score(p models.DevicePosture, now time.Time) int {
	return Evaluate(p, now).Score
}

// ScoreDeviceCompliance returns the capped compliance risk score of p as of the current time.
func ScoreDeviceCompliance(p models.DevicePosture) int {
	return Score(p, time.Now())
}

// DaysSinceUpdate returns whole days elapsed since last. When last is nil or
// zero it reports a value past the stale threshold and known=false.
// Future dates count as zero days.
func DaysSinceUpdate(last *time.Time, now time.Time) (days int, known bool) {
	if last == nil || last.IsZero() {
		return staleUpdateDays + 1, false
	}
	elapsed := now.Sub(*last)
	if elapsed < 0 {
		return 0, true
	}
	return int(elapsed / (24 * time.Hour)), true
}

func enabled(v *bool) bool {
	return v != nil && *v
}
