package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/gokaycavdar/go-riskguard/pkg/apperr"
)

// OSType is the operating system family reported by the device collector.
type OSType string

const (
	OSWindows OSType = "windows"
	OSMacOS   OSType = "macos"
	OSLinux   OSType = "linux"
	OSIOS     OSType = "ios"
	OSAndroid OSType = "android"
)

// Valid reports whether the OS type is one of the known families.
func (o OSType) Valid() bool {
	switch o {
	case OSWindows, OSMacOS, OSLinux, OSIOS, OSAndroid:
		return true
	}
	return false
}

// DevicePosture is a snapshot of a client device's security configuration.
//
// Every signal is optional. A nil field means the collector could not tell,
// which is not the same as an explicit false: rules decide per field how an
// unknown value is scored.
//
// The compliance-path names used by the device inventory
// (antivirusEnabled, diskEncryptionEnabled, lastUpdate) are accepted as
// aliases when decoding JSON.
type DevicePosture struct {
	// DeviceID identifies the device in the inventory; it is never scored.
	DeviceID string `json:"deviceId,omitempty"`

	OSType    *OSType `json:"osType,omitempty"`
	OSVersion *string `json:"osVersion,omitempty"`

	DiskEncrypted   *bool `json:"diskEncrypted,omitempty"`
	Antivirus       *bool `json:"antivirus,omitempty"`
	FirewallEnabled *bool `json:"firewallEnabled,omitempty"`
	IsJailbroken    *bool `json:"isJailbroken,omitempty"`

	Fingerprint   *string `json:"fingerprint,omitempty"`
	IsKnownDevice *bool   `json:"isKnownDevice,omitempty"`

	LastSecurityUpdate *time.Time `json:"lastSecurityUpdate,omitempty"`

	// ComplianceScore is the inventory's own 0-100 compliance rating.
	// Its presence marks a posture that carries compliance-path data.
	ComplianceScore *int `json:"complianceScore,omitempty"`
}

// Clone returns a deep copy of p; no pointer field is shared.
func (p DevicePosture) Clone() DevicePosture {
	cp := p
	cp.OSType = clonePtr(p.OSType)
	cp.OSVersion = clonePtr(p.OSVersion)
	cp.DiskEncrypted = clonePtr(p.DiskEncrypted)
	cp.Antivirus = clonePtr(p.Antivirus)
	cp.FirewallEnabled = clonePtr(p.FirewallEnabled)
	cp.IsJailbroken = clonePtr(p.IsJailbroken)
	cp.Fingerprint = clonePtr(p.Fingerprint)
	cp.IsKnownDevice = clonePtr(p.IsKnownDevice)
	cp.LastSecurityUpdate = clonePtr(p.LastSecurityUpdate)
	cp.ComplianceScore = clonePtr(p.ComplianceScore)
	return cp
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// UnmarshalJSON decodes a posture, folding the compliance-path aliases into
// the canonical fields. The canonical name wins when both are present.
func (p *DevicePosture) UnmarshalJSON(data []byte) error {
	type plain DevicePosture
	var aux struct {
		plain
		AntivirusEnabled      *bool      `json:"antivirusEnabled,omitempty"`
		DiskEncryptionEnabled *bool      `json:"diskEncryptionEnabled,omitempty"`
		LastUpdate            *time.Time `json:"lastUpdate,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = DevicePosture(aux.plain)
	if p.Antivirus == nil {
		p.Antivirus = aux.AntivirusEnabled
	}
	if p.DiskEncrypted == nil {
		p.DiskEncrypted = aux.DiskEncryptionEnabled
	}
	if p.LastSecurityUpdate == nil {
		p.LastSecurityUpdate = aux.LastUpdate
	}
	return nil
}

// HasCompliance reports whether the posture carries compliance-path data.
func (p DevicePosture) HasCompliance() bool {
	return p.ComplianceScore != nil
}

// Validate checks the invariants of a typed posture.
func (p DevicePosture) Validate() error {
	if p.ComplianceScore != nil && (*p.ComplianceScore < 0 || *p.ComplianceScore > 100) {
		return apperr.InvalidInput("invalid device posture", nil).
			WithDetails(fmt.Sprintf("complianceScore %d outside [0,100]", *p.ComplianceScore))
	}
	if p.OSType != nil && !p.OSType.Valid() {
		return apperr.InvalidInput("invalid device posture", nil).
			WithDetails(fmt.Sprintf("unknown osType %q", *p.OSType))
	}
	return nil
}

// AccessContext describes the network and location circumstances of a request.
type AccessContext struct {
	ImpossibleTravel *bool    `json:"impossibleTravel,omitempty"`
	Country          *string  `json:"country,omitempty"`
	City             *string  `json:"city,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Timezone         *string  `json:"timezone,omitempty"`
	IsVPN            *bool    `json:"isVPN,omitempty"`
	IsTor            *bool    `json:"isTor,omitempty"`

	// IPAddress is informational; no rule scores it.
	IPAddress *string `json:"ipAddress,omitempty"`

	// IPReputation is 0-100, higher is more trustworthy.
	IPReputation *int       `json:"ipReputation,omitempty"`
	AccessTime   *time.Time `json:"accessTime,omitempty"`
}

// Validate checks the invariants of a typed access context.
func (a AccessContext) Validate() error {
	if a.IPReputation != nil && (*a.IPReputation < 0 || *a.IPReputation > 100) {
		return apperr.InvalidInput("invalid access context", nil).
			WithDetails(fmt.Sprintf("ipReputation %d outside [0,100]", *a.IPReputation))
	}
	return nil
}

// RiskTolerance controls how aggressively borderline signals trigger step-up.
type RiskTolerance string

const (
	ToleranceLow    RiskTolerance = "LOW"
	ToleranceMedium RiskTolerance = "MEDIUM"
	ToleranceHigh   RiskTolerance = "HIGH"
)

// Valid reports whether t is empty or one of the known tolerances.
func (t RiskTolerance) Valid() bool {
	switch t {
	case "", ToleranceLow, ToleranceMedium, ToleranceHigh:
		return true
	}
	return false
}

// UserProfile is the read-only user history the engine scores against.
type UserProfile struct {
	ID                string        `json:"id"`
	DeviceID          string        `json:"deviceId,omitempty"`
	KnownFingerprints []string      `json:"knownFingerprints"`
	KnownCountries    []string      `json:"knownCountries"`
	RiskTolerance     RiskTolerance `json:"riskTolerance"`
}

// Tolerance returns the effective tolerance: MEDIUM when unset, LOW when the
// stored value is not recognised.
func (u UserProfile) Tolerance() RiskTolerance {
	switch u.RiskTolerance {
	case "":
		return ToleranceMedium
	case ToleranceLow, ToleranceMedium, ToleranceHigh:
		return u.RiskTolerance
	}
	return ToleranceLow
}

// KnowsFingerprint reports whether fp is one of the user's known device fingerprints.
func (u UserProfile) KnowsFingerprint(fp string) bool {
	return slices.Contains(u.KnownFingerprints, fp)
}

// KnowsCountry reports whether country is one the user has accessed from before.
func (u UserProfile) KnowsCountry(country string) bool {
	return slices.Contains(u.KnownCountries, country)
}

// TransactionContext carries the optional transaction metadata of a request.
type TransactionContext struct {
	// Amount is a plain number; the engine is agnostic to currency and minor units.
	Amount float64 `json:"amount"`
}

func Bool(v bool) *bool           { return &v }
func String(v string) *string     { return &v }
func Int(v int) *int              { return &v }
func Float(v float64) *float64    { return &v }
func Time(v time.Time) *time.Time { return &v }
func OS(v OSType) *OSType         { return &v }
