package rules

// VPNCheckRule flags access through a VPN or proxy. Users with LOW risk
// tolerance are stepped up.
type VPNCheckRule struct {
	RiskScore int
}

func NewVPNCheckRule(score int) *VPNCheckRule {
	return &VPNCheckRule{RiskScore: score}
}

func (v *VPNCheckRule) Name() string {
	return "VPN/Proxy Detection"
}

func (v *VPNCheckRule) Description() string {
	return "Checks whether the request arrives through a VPN or proxy."
}

func (v *VPNCheckRule) Validate(in Input) (Outcome, bool) {
	if !isTrue(in.Access.IsVPN) {
		return Outcome{}, false
	}

	return Outcome{
		Points:     v.RiskScore,
		Reason:     "VPN or proxy detected",
		Severity:   severityFor(v.RiskScore),
		RequireMFA: lowTolerance(in.Profile),
	}, true
}
