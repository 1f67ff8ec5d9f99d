package rules

import "fmt"

// NewCountryRule flags access from a country the user has not accessed from
// before. Users with LOW risk tolerance are stepped up. An absent country is
// not scored.
type NewCountryRule struct {
	RiskScore int
}

func NewNewCountryRule(score int) *NewCountryRule {
	return &NewCountryRule{RiskScore: score}
}

func (c *NewCountryRule) Name() string {
	return "New Country"
}

func (c *NewCountryRule) Description() string {
	return "Checks whether the access country is among the user's known countries."
}

func (c *NewCountryRule) Validate(in Input) (Outcome, bool) {
	country, ok := present(in.Access.Country)
	if !ok || in.Profile.KnowsCountry(country) {
		return Outcome{}, false
	}

	return Outcome{
		Points:     c.RiskScore,
		Reason:     fmt.Sprintf("New country detected (%s)", country),
		Severity:   severityFor(c.RiskScore),
		RequireMFA: lowTolerance(in.Profile),
	}, true
}
