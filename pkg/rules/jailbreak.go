package rules

// JailbreakRule flags a jailbroken or rooted device. Users with LOW risk
// tolerance are stepped up.
type JailbreakRule struct {
	RiskScore int
}

func NewJailbreakRule(score int) *JailbreakRule {
	return &JailbreakRule{RiskScore: score}
}

func (j *JailbreakRule) Name() string {
	return "Jailbroken Device"
}

func (j *JailbreakRule) Description() string {
	return "Checks whether the device is jailbroken or rooted."
}

func (j *JailbreakRule) Validate(in Input) (Outcome, bool) {
	if !isTrue(in.Posture.IsJailbroken) {
		return Outcome{}, false
	}

	return Outcome{
		Points:     j.RiskScore,
		Reason:     "Device is jailbroken/rooted",
		Severity:   severityFor(j.RiskScore),
		RequireMFA: lowTolerance(in.Profile),
	}, true
}
