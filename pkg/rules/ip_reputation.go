package rules

import "fmt"

// IPReputationRule flags a source IP with a poor reputation score.
// Reputation runs 0-100 with higher meaning more trustworthy. A score below
// Threshold adds points; a score below StepUpBelow additionally requires MFA.
type IPReputationRule struct {
	Threshold   int
	StepUpBelow int
	RiskScore   int
}

func NewIPReputationRule(threshold, stepUpBelow, score int) *IPReputationRule {
	return &IPReputationRule{
		Threshold:   threshold,
		StepUpBelow: stepUpBelow,
		RiskScore:   score,
	}
}

// DefaultIPReputationRule scores reputations below 50 and steps up below 30.
func DefaultIPReputationRule(score int) *IPReputationRule {
	return NewIPReputationRule(50, 30, score)
}

func (r *IPReputationRule) Name() string {
	return "Low Reputation IP"
}

func (r *IPReputationRule) Description() string {
	return fmt.Sprintf("Checks whether the source IP reputation is below %d.", r.Threshold)
}

func (r *IPReputationRule) Validate(in Input) (Outcome, bool) {
	rep := in.Access.IPReputation
	if rep == nil || *rep >= r.Threshold {
		return Outcome{}, false
	}

	return Outcome{
		Points:     r.RiskScore,
		Reason:     fmt.Sprintf("Low reputation IP (score: %d)", *rep),
		Severity:   severityFor(r.RiskScore),
		RequireMFA: *rep < r.StepUpBelow,
	}, true
}
