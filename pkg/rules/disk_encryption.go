package rules

// DiskEncryptionRule flags a device that explicitly reports disk encryption
// as disabled. Unknown is not scored.
type DiskEncryptionRule struct {
	RiskScore int
}

func NewDiskEncryptionRule(score int) *DiskEncryptionRule {
	return &DiskEncryptionRule{RiskScore: score}
}

func (d *DiskEncryptionRule) Name() string {
	return "Disk Encryption Disabled"
}

func (d *DiskEncryptionRule) Description() string {
	return "Checks whether the device reports disk encryption as disabled."
}

func (d *DiskEncryptionRule) Validate(in Input) (Outcome, bool) {
	if !isFalse(in.Posture.DiskEncrypted) {
		return Outcome{}, false
	}

	return Outcome{
		Points:   d.RiskScore,
		Reason:   "Disk encryption not enabled",
		Severity: severityFor(d.RiskScore),
	}, true
}
