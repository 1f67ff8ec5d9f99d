package rules

// AntivirusRule flags a device that explicitly reports no antivirus.
// Unknown is not scored.
type AntivirusRule struct {
	RiskScore int
}

func NewAntivirusRule(score int) *AntivirusRule {
	return &AntivirusRule{RiskScore: score}
}

func (a *AntivirusRule) Name() string {
	return "Antivirus Missing"
}

func (a *AntivirusRule) Description() string {
	return "Checks whether the device reports that no antivirus is running."
}

func (a *AntivirusRule) Validate(in Input) (Outcome, bool) {
	if !isFalse(in.Posture.Antivirus) {
		return Outcome{}, false
	}

	return Outcome{
		Points:   a.RiskScore,
		Reason:   "Antivirus not detected",
		Severity: severityFor(a.RiskScore),
	}, true
}
