// Package storage holds the read side and write side of the engine's
// external state: user profiles, device postures and login history.
//
// Implementations return nil, nil when an entity does not exist; the
// assessment service turns that into a NOT_FOUND error. Any other error is a
// backend failure.
package storage

import (
	"context"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

// ProfileStore persists user profiles and the known fingerprint and country
// sets the context rules score against.
type ProfileStore interface {
	// GetProfile returns nil, nil when the user is unknown.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)

	// SaveProfile creates or replaces a profile, including its known sets.
	SaveProfile(ctx context.Context, profile *models.UserProfile) error

	// RememberDevice adds a fingerprint to the user's known set.
	RememberDevice(ctx context.Context, userID, fingerprint string) error

	// RememberCountry adds a country to the user's known set.
	RememberCountry(ctx context.Context, userID, country string) error
}

// DeviceStore persists the last reported posture of each device.
type DeviceStore interface {
	// GetPosture returns nil, nil when the device is unknown.
	GetPosture(ctx context.Context, deviceID string) (*models.DevicePosture, error)

	SavePosture(ctx context.Context, posture *models.DevicePosture) error
}

// HistoryStore keeps the most recent allowed login of each user.
//
// Records passed to this interface are already privacy-safe: IP addresses
// are masked to a prefix and coordinates are city-level.
type HistoryStore interface {
	// GetLastRecord returns nil, nil if no previous record exists (first-time user).
	GetLastRecord(ctx context.Context, userID string) (*models.LoginRecord, error)

	SaveRecord(ctx context.Context, record *models.LoginRecord) error
}

// Store is the union served by every backend.
type Store interface {
	ProfileStore
	DeviceStore
	HistoryStore
}
