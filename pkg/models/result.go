package models

import (
	"strings"
	"time"
)

// Severity grades a single risk factor.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskLevel is the four-band classification of an assessment.
// The canonical labels are upper case.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Lower returns the lower-case label used by device inventory consumers.
func (l RiskLevel) Lower() string {
	return strings.ToLower(string(l))
}

// Rank orders levels from LOW (0) to CRITICAL (3).
func (l RiskLevel) Rank() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 0
}

// Mode records which scoring path produced an assessment.
type Mode string

const (
	ModeDevice Mode = "device"
	ModeFull   Mode = "full"
)

// Decision is the gate outcome derived from the assessment flags.
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionChallenge Decision = "challenge"
	DecisionDeny      Decision = "deny"
)

// RiskFactor is a single rule that contributed to the score.
// Each factor is self-explanatory and can be logged for audit purposes.
type RiskFactor struct {
	// Name is a short label, e.g. "VPN Detected".
	Name string `json:"name"`

	// Description is the human-readable reason and may embed the offending value.
	Description string `json:"description"`

	Severity Severity `json:"severity"`

	// Weight is the number of points this factor added.
	Weight int `json:"weight"`
}

// RiskAssessment is the verdict for one assessment request.
//
// It is built once per call and must be treated as immutable: callers should
// not modify Factors in place.
type RiskAssessment struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId,omitempty"`
	Mode     Mode   `json:"mode"`

	// Score is clamped to [0,100].
	Score int `json:"score"`

	// RawScore is the accumulated score before clamping; the level is derived from it.
	RawScore int `json:"rawScore"`

	Level RiskLevel `json:"level"`

	// Factors are listed in evaluation order, not severity order.
	Factors []RiskFactor `json:"factors"`

	RequiresMFA bool      `json:"requiresMFA"`
	BlockAccess bool      `json:"blockAccess"`
	Timestamp   time.Time `json:"timestamp"`
}

// Reasons returns the factor descriptions in evaluation order.
func (r RiskAssessment) Reasons() []string {
	reasons := make([]string, 0, len(r.Factors))
	for _, f := range r.Factors {
		reasons = append(reasons, f.Description)
	}
	return reasons
}

// Decision maps the flags onto allow / challenge / deny. Block wins over MFA.
func (r RiskAssessment) Decision() Decision {
	switch {
	case r.BlockAccess:
		return DecisionDeny
	case r.RequiresMFA:
		return DecisionChallenge
	}
	return DecisionAllow
}
