package rules

// UnknownDeviceRule flags a device that the collector did not recognise.
// Only an explicit isKnownDevice=true suppresses it; an unknown value is
// scored like a first login.
type UnknownDeviceRule struct {
	RiskScore int
}

func NewUnknownDeviceRule(score int) *UnknownDeviceRule {
	return &UnknownDeviceRule{RiskScore: score}
}

func (u *UnknownDeviceRule) Name() string {
	return "Unknown Device"
}

func (u *UnknownDeviceRule) Description() string {
	return "Checks whether the request comes from a device the user has logged in with before."
}

func (u *UnknownDeviceRule) Validate(in Input) (Outcome, bool) {
	if isTrue(in.Posture.IsKnownDevice) {
		return Outcome{}, false
	}

	return Outcome{
		Points:   u.RiskScore,
		Reason:   "Unknown device (first login)",
		Severity: severityFor(u.RiskScore),
	}, true
}
