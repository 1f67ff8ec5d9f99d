package models

import "time"

// LoginRecord is the privacy-safe trace of an allowed access, kept so the
// next access can be checked for impossible travel.
//
// The raw IP is never stored, only its /24 (IPv4) or /64 (IPv6) prefix.
// Coordinates are the city-level GeoIP coordinates, not device GPS.
type LoginRecord struct {
	UserID         string    `json:"userId"`
	Timestamp      time.Time `json:"timestamp"`
	MaskedIPPrefix string    `json:"maskedIpPrefix,omitempty"`
	CountryCode    string    `json:"countryCode,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
}

// HasLocation reports whether the record carries usable coordinates.
func (r LoginRecord) HasLocation() bool {
	return r.Latitude != 0 || r.Longitude != 0
}
