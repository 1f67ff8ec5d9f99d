package rules

// Default returns the standard context rule table in evaluation order.
// Order only affects the order of factors in a verdict; points are additive.
func Default() []Rule {
	return []Rule{
		// Device posture
		NewUnknownDeviceRule(15),
		NewJailbreakRule(25),
		NewDiskEncryptionRule(10),
		NewAntivirusRule(10),
		DefaultOutdatedOSRule(20),

		// Access context
		NewImpossibleTravelRule(50),
		NewVPNCheckRule(15),
		NewTorRule(30),
		DefaultIPReputationRule(20),
		NewNewCountryRule(20),
		NewFingerprintRule(10),
	}
}
