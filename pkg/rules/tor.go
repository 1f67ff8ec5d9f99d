package rules

import "github.com/gokaycavdar/go-riskguard/pkg/models"

// TorRule flags access through Tor or another anonymization network.
// Access is blocked unless the user's risk tolerance is HIGH.
type TorRule struct {
	RiskScore int
}

func NewTorRule(score int) *TorRule {
	return &TorRule{RiskScore: score}
}

func (t *TorRule) Name() string {
	return "Tor/Anonymizer Detection"
}

func (t *TorRule) Description() string {
	return "Checks whether the request arrives through Tor or an anonymization network."
}

func (t *TorRule) Validate(in Input) (Outcome, bool) {
	if !isTrue(in.Access.IsTor) {
		return Outcome{}, false
	}

	tol := in.Profile.Tolerance()
	return Outcome{
		Points:   t.RiskScore,
		Reason:   "Tor or anonymization network detected",
		Severity: severityFor(t.RiskScore),
		Block:    tol == models.ToleranceLow || tol == models.ToleranceMedium,
	}, true
}
