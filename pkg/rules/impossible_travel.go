package rules

// ImpossibleTravelRule flags an access location that is geographically
// inconsistent with the previous one. Access is always blocked.
//
// The travel computation itself belongs to the access-signal collector;
// this rule only consumes its verdict.
type ImpossibleTravelRule struct {
	RiskScore int
}

func NewImpossibleTravelRule(score int) *ImpossibleTravelRule {
	return &ImpossibleTravelRule{RiskScore: score}
}

func (v *ImpossibleTravelRule) Name() string {
	return "Impossible Travel"
}

func (v *ImpossibleTravelRule) Description() string {
	return "Checks whether the collector reported physically impossible travel since the last access."
}

func (v *ImpossibleTravelRule) Validate(in Input) (Outcome, bool) {
	if !isTrue(in.Access.ImpossibleTravel) {
		return Outcome{}, false
	}

	return Outcome{
		Points:   v.RiskScore,
		Reason:   "Impossible travel detected (geographically inconsistent)",
		Severity: severityFor(v.RiskScore),
		Block:    true,
	}, true
}
