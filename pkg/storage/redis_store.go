package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

const keyPrefix = "riskguard:"

// RedisStore keeps profiles, postures and login history in Redis.
//
// Profiles are stored as a JSON document plus two sets for the known
// fingerprints and countries, so RememberDevice and RememberCountry are a
// single SADD and never race with each other.
type RedisStore struct {
	client     *redis.Client
	historyTTL time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithHistoryTTL expires login history after ttl. Zero keeps it forever.
func WithHistoryTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.historyTTL = ttl }
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func profileKey(userID string) string      { return keyPrefix + "profile:" + userID }
func fingerprintsKey(userID string) string { return keyPrefix + "profile:" + userID + ":fingerprints" }
func countriesKey(userID string) string    { return keyPrefix + "profile:" + userID + ":countries" }
func postureKey(deviceID string) string    { return keyPrefix + "device:" + deviceID }
func historyKey(userID string) string      { return keyPrefix + "history:" + userID }

func (s *RedisStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	found, err := s.getJSON(ctx, profileKey(userID), &profile)
	if err != nil || !found {
		return nil, err
	}

	pipe := s.client.Pipeline()
	fps := pipe.SMembers(ctx, fingerprintsKey(userID))
	countries := pipe.SMembers(ctx, countriesKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load known sets for %s: %w", userID, err)
	}

	profile.KnownFingerprints = sorted(fps.Val())
	profile.KnownCountries = sorted(countries.Val())
	return &profile, nil
}

func (s *RedisStore) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil {
		return ErrNilRecord
	}
	if profile.ID == "" {
		return ErrEmptyID
	}

	doc := *profile
	doc.KnownFingerprints = nil
	doc.KnownCountries = nil
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, profileKey(profile.ID), data, 0)
		pipe.Del(ctx, fingerprintsKey(profile.ID), countriesKey(profile.ID))
		if len(profile.KnownFingerprints) > 0 {
			pipe.SAdd(ctx, fingerprintsKey(profile.ID), toAny(profile.KnownFingerprints)...)
		}
		if len(profile.KnownCountries) > 0 {
			pipe.SAdd(ctx, countriesKey(profile.ID), toAny(profile.KnownCountries)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store profile %s: %w", profile.ID, err)
	}
	return nil
}

func (s *RedisStore) RememberDevice(ctx context.Context, userID, fingerprint string) error {
	return s.remember(ctx, userID, fingerprintsKey(userID), fingerprint)
}

func (s *RedisStore) RememberCountry(ctx context.Context, userID, country string) error {
	return s.remember(ctx, userID, countriesKey(userID), country)
}

func (s *RedisStore) remember(ctx context.Context, userID, key, value string) error {
	if value == "" {
		return nil
	}

	n, err := s.client.Exists(ctx, profileKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check profile %s: %w", userID, err)
	}
	if n == 0 {
		return ErrNoSuchUser
	}

	if err := s.client.SAdd(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetPosture(ctx context.Context, deviceID string) (*models.DevicePosture, error) {
	var posture models.DevicePosture
	found, err := s.getJSON(ctx, postureKey(deviceID), &posture)
	if err != nil || !found {
		return nil, err
	}
	return &posture, nil
}

func (s *RedisStore) SavePosture(ctx context.Context, posture *models.DevicePosture) error {
	if posture == nil {
		return ErrNilRecord
	}
	if posture.DeviceID == "" {
		return ErrEmptyID
	}
	return s.setJSON(ctx, postureKey(posture.DeviceID), posture, 0)
}

func (s *RedisStore) GetLastRecord(ctx context.Context, userID string) (*models.LoginRecord, error) {
	var record models.LoginRecord
	found, err := s.getJSON(ctx, historyKey(userID), &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

func (s *RedisStore) SaveRecord(ctx context.Context, record *models.LoginRecord) error {
	if record == nil {
		return ErrNilRecord
	}
	return s.setJSON(ctx, historyKey(record.UserID), record, s.historyTTL)
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func sorted(v []string) []string {
	slices.Sort(v)
	return v
}

func toAny(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
