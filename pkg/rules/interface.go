package rules

import "github.com/gokaycavdar/go-riskguard/pkg/models"

// Input is everything a context rule may look at. Rules treat it as read-only.
type Input struct {
	Posture models.DevicePosture
	Access  models.AccessContext
	Profile models.UserProfile
}

// Outcome is what a rule contributes when it fires.
type Outcome struct {
	Points   int
	Reason   string
	Severity models.Severity

	// RequireMFA and Block are ORed into the verdict; a rule can only raise them.
	RequireMFA bool
	Block      bool
}

// Rule is the contract every context rule satisfies.
type Rule interface {
	// Name is a short unique label, e.g. "VPN Detected".
	Name() string

	// Description explains what the rule checks.
	Description() string

	// Validate evaluates the rule. fired is false when the rule's condition
	// does not hold; the Outcome is then ignored.
	Validate(in Input) (out Outcome, fired bool)
}
