package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

// MemoryStore is a thread-safe in-memory Store for development and tests.
// Values are deep-copied on the way in and out so callers never share
// slices or pointer fields with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.UserProfile   // key: user ID
	postures map[string]*models.DevicePosture // key: device ID
	history  map[string]*models.LoginRecord   // key: user ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.UserProfile),
		postures: make(map[string]*models.DevicePosture),
		history:  make(map[string]*models.LoginRecord),
	}
}

func (m *MemoryStore) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return cloneProfile(p), nil
}

func (m *MemoryStore) SaveProfile(_ context.Context, profile *models.UserProfile) error {
	if profile == nil {
		return ErrNilRecord
	}
	if profile.ID == "" {
		return ErrEmptyID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (m *MemoryStore) RememberDevice(_ context.Context, userID, fingerprint string) error {
	return m.remember(userID, fingerprint, func(p *models.UserProfile) *[]string { return &p.KnownFingerprints })
}

func (m *MemoryStore) RememberCountry(_ context.Context, userID, country string) error {
	return m.remember(userID, country, func(p *models.UserProfile) *[]string { return &p.KnownCountries })
}

func (m *MemoryStore) remember(userID, value string, set func(*models.UserProfile) *[]string) error {
	if value == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return ErrNoSuchUser
	}
	known := set(p)
	if !slices.Contains(*known, value) {
		*known = append(*known, value)
	}
	return nil
}

func (m *MemoryStore) GetPosture(_ context.Context, deviceID string) (*models.DevicePosture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.postures[deviceID]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	return &cp, nil
}

func (m *MemoryStore) SavePosture(_ context.Context, posture *models.DevicePosture) error {
	if posture == nil {
		return ErrNilRecord
	}
	if posture.DeviceID == "" {
		return ErrEmptyID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := posture.Clone()
	m.postures[posture.DeviceID] = &cp
	return nil
}

func (m *MemoryStore) GetLastRecord(_ context.Context, userID string) (*models.LoginRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.history[userID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// SaveRecord replaces the user's last record.
func (m *MemoryStore) SaveRecord(_ context.Context, record *models.LoginRecord) error {
	if record == nil {
		return ErrNilRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *record
	m.history[record.UserID] = &cp
	return nil
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	cp := *p
	cp.KnownFingerprints = slices.Clone(p.KnownFingerprints)
	cp.KnownCountries = slices.Clone(p.KnownCountries)
	return &cp
}
