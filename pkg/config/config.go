// Package config loads service configuration from defaults, an optional
// config.yaml, an optional .env file and RISKGUARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gokaycavdar/go-riskguard/pkg/policy"
)

// Config holds the service configuration.
type Config struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	// RedisURL selects the Redis store; empty means in-memory.
	RedisURL string `mapstructure:"redis_url"`

	GeoIP  GeoIPConfig  `mapstructure:"geoip"`
	Lists  ListsConfig  `mapstructure:"lists"`
	Policy PolicyConfig `mapstructure:"policy"`
	Travel TravelConfig `mapstructure:"travel"`
}

// GeoIPConfig points at MaxMind databases. Without a city database the
// access collector runs without location data.
type GeoIPConfig struct {
	CityDB string `mapstructure:"city_db"`
	ASNDB  string `mapstructure:"asn_db"`
}

// ListsConfig points at prefix list files (one IP or CIDR per line).
type ListsConfig struct {
	TorExits string `mapstructure:"tor_exits"`
	Threats  string `mapstructure:"threats"`
}

type PolicyConfig struct {
	Critical             int     `mapstructure:"critical"`
	High                 int     `mapstructure:"high"`
	Medium               int     `mapstructure:"medium"`
	TransactionThreshold float64 `mapstructure:"transaction_threshold"`
	TransactionPoints    int     `mapstructure:"transaction_points"`
}

type TravelConfig struct {
	MinDistanceKm float64       `mapstructure:"min_distance_km"`
	Window        time.Duration `mapstructure:"window"`

	// HistoryTTL expires stored login history in Redis. Zero keeps it.
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

// Bands returns the configured band table.
func (p PolicyConfig) Bands() policy.Bands {
	return policy.Bands{Critical: p.Critical, High: p.High, Medium: p.Medium}
}

// Surcharge returns the configured transaction surcharge.
func (p PolicyConfig) Surcharge() policy.TransactionSurcharge {
	return policy.TransactionSurcharge{Threshold: p.TransactionThreshold, Points: p.TransactionPoints}
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/riskguard")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RISKGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "")
	v.SetDefault("redis_url", "")

	v.SetDefault("geoip.city_db", "")
	v.SetDefault("geoip.asn_db", "")
	v.SetDefault("lists.tor_exits", "")
	v.SetDefault("lists.threats", "")

	bands := policy.DefaultBands()
	surcharge := policy.DefaultSurcharge()
	v.SetDefault("policy.critical", bands.Critical)
	v.SetDefault("policy.high", bands.High)
	v.SetDefault("policy.medium", bands.Medium)
	v.SetDefault("policy.transaction_threshold", surcharge.Threshold)
	v.SetDefault("policy.transaction_points", surcharge.Points)

	v.SetDefault("travel.min_distance_km", 500.0)
	v.SetDefault("travel.window", 2*time.Hour)
	v.SetDefault("travel.history_ttl", 30*24*time.Hour)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if err := c.Policy.Bands().Validate(); err != nil {
		return err
	}
	if c.Policy.TransactionThreshold < 0 || c.Policy.TransactionPoints < 0 {
		return errors.New("transaction surcharge must not be negative")
	}
	if c.Travel.MinDistanceKm <= 0 || c.Travel.Window <= 0 {
		return errors.New("travel distance and window must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
