// Package geoip wraps the MaxMind City and ASN databases.
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoASNDatabase is returned by GetASN when no ASN database was opened.
var ErrNoASNDatabase = errors.New("geoip: asn database not configured")

// GeoData holds the geographic data found for an IP address.
type GeoData struct {
	CountryCode   string
	CityName      string
	CityGeonameID uint
	Latitude      float64
	Longitude     float64

	// TimeZone is the IANA zone of the location, e.g. "Europe/Istanbul".
	TimeZone string
}

// Locator is the lookup surface consumed by the access collector.
type Locator interface {
	GetLocation(ipAddress string) (*GeoData, error)
	GetASN(ipAddress string) (uint, string, error)
}

// Service manages the City and ASN database readers.
type Service struct {
	cityReader *geoip2.Reader
	asnReader  *geoip2.Reader
}

// NewService opens the .mmdb files. The ASN database is optional; pass an
// empty path to run without it.
func NewService(cityDBPath, asnDBPath string) (*Service, error) {
	cityReader, err := geoip2.Open(cityDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open city database: %w", err)
	}

	s := &Service{cityReader: cityReader}
	if asnDBPath == "" {
		return s, nil
	}

	asnReader, err := geoip2.Open(asnDBPath)
	if err != nil {
		cityReader.Close()
		return nil, fmt.Errorf("failed to open asn database: %w", err)
	}
	s.asnReader = asnReader

	return s, nil
}

// Close closes the open database readers.
func (s *Service) Close() {
	if s.cityReader != nil {
		s.cityReader.Close()
	}
	if s.asnReader != nil {
		s.asnReader.Close()
	}
}

// GetLocation returns the city, coordinates and time zone of an IP address.
func (s *Service) GetLocation(ipAddress string) (*GeoData, error) {
	ip, err := parseIP(ipAddress)
	if err != nil {
		return nil, err
	}

	record, err := s.cityReader.City(ip)
	if err != nil {
		return nil, err
	}

	return &GeoData{
		CountryCode:   record.Country.IsoCode,
		CityName:      record.City.Names["en"],
		CityGeonameID: uint(record.City.GeoNameID),
		Latitude:      record.Location.Latitude,
		Longitude:     record.Location.Longitude,
		TimeZone:      record.Location.TimeZone,
	}, nil
}

// GetASN returns the autonomous system number and organisation owning an IP address.
func (s *Service) GetASN(ipAddress string) (uint, string, error) {
	if s.asnReader == nil {
		return 0, "", ErrNoASNDatabase
	}

	ip, err := parseIP(ipAddress)
	if err != nil {
		return 0, "", err
	}

	record, err := s.asnReader.ASN(ip)
	if err != nil {
		return 0, "", err
	}

	return uint(record.AutonomousSystemNumber), record.AutonomousSystemOrganization, nil
}

func parseIP(ipAddress string) (net.IP, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address: %q", ipAddress)
	}
	return ip, nil
}
