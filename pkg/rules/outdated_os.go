package rules

import (
	"fmt"
	"strings"
)

// OutdatedOSRule flags operating systems that no longer receive security
// updates. It always requires step-up verification.
type OutdatedOSRule struct {
	// Markers are substrings of the reported OS version that identify an
	// unsupported release, e.g. "Windows 7".
	Markers   []string
	RiskScore int
}

func NewOutdatedOSRule(markers []string, score int) *OutdatedOSRule {
	return &OutdatedOSRule{Markers: markers, RiskScore: score}
}

// DefaultOutdatedOSRule flags Windows 7 and Windows 8 (including 8.1).
func DefaultOutdatedOSRule(score int) *OutdatedOSRule {
	return NewOutdatedOSRule([]string{"Windows 7", "Windows 8"}, score)
}

func (o *OutdatedOSRule) Name() string {
	return "Outdated Operating System"
}

func (o *OutdatedOSRule) Description() string {
	return fmt.Sprintf("Checks whether the OS version matches an unsupported release (%s).", strings.Join(o.Markers, ", "))
}

func (o *OutdatedOSRule) Validate(in Input) (Outcome, bool) {
	version, ok := present(in.Posture.OSVersion)
	if !ok {
		return Outcome{}, false
	}

	for _, marker := range o.Markers {
		if strings.Contains(version, marker) {
			return Outcome{
				Points:     o.RiskScore,
				Reason:     "Outdated operating system",
				Severity:   severityFor(o.RiskScore),
				RequireMFA: true,
			}, true
		}
	}

	return Outcome{}, false
}
