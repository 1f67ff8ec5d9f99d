package rules

import "github.com/gokaycavdar/go-riskguard/pkg/models"

// isTrue reports an explicit true.
func isTrue(v *bool) bool {
	return v != nil && *v
}

// isFalse reports an explicit false; unknown is not false.
func isFalse(v *bool) bool {
	return v != nil && !*v
}

// present returns the value of a non-empty optional string.
func present(v *string) (string, bool) {
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

func lowTolerance(p models.UserProfile) bool {
	return p.Tolerance() == models.ToleranceLow
}

// severityFor grades a factor by the points it carries.
func severityFor(points int) models.Severity {
	switch {
	case points >= 25:
		return models.SeverityHigh
	case points >= 15:
		return models.SeverityMedium
	}
	return models.SeverityLow
}
