package rules

// FingerprintRule flags a device fingerprint that is not among the user's
// known fingerprints. An absent fingerprint is not scored.
type FingerprintRule struct {
	RiskScore int
}

func NewFingerprintRule(score int) *FingerprintRule {
	return &FingerprintRule{RiskScore: score}
}

func (f *FingerprintRule) Name() string {
	return "Unrecognized Fingerprint"
}

func (f *FingerprintRule) Description() string {
	return "Checks whether the device fingerprint is one the user has used before."
}

func (f *FingerprintRule) Validate(in Input) (Outcome, bool) {
	fp, ok := present(in.Posture.Fingerprint)
	if !ok || in.Profile.KnowsFingerprint(fp) {
		return Outcome{}, false
	}

	return Outcome{
		Points:   f.RiskScore,
		Reason:   "Device fingerprint not recognized",
		Severity: severityFor(f.RiskScore),
	}, true
}
