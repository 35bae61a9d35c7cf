package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Chain    ChainConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings for the event/alert bus.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
	RatePerSecond float64
	RateBurst     int
}

// ChainConfig holds audit-chain settings: the anchor signing key and
// the cadence of background anchoring and verification.
type ChainConfig struct {
	AnchorKey       string //nolint:gosec // G117: HMAC key config
	AnchorInterval  time.Duration
	VerifyInterval  time.Duration
	VerifyWindowHrs int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production, the DB
// password and the anchor key must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("AUDIT_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("AUDIT_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("AUDIT_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("AUDIT_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("AUDIT_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	ratePerSecond, err := getEnvFloat("AUDIT_SERVER_RATE_PER_SECOND", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("AUDIT_SERVER_RATE_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	anchorInterval, err := getEnvDuration("AUDIT_CHAIN_ANCHOR_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	verifyInterval, err := getEnvDuration("AUDIT_CHAIN_VERIFY_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	verifyWindow, err := getEnvInt("AUDIT_CHAIN_VERIFY_WINDOW_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("AUDIT_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("AUDIT_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("AUDIT_DB_USER", "audittrail"),
			Password: getEnv("AUDIT_DB_PASSWORD", ""),
			DBName:   getEnv("AUDIT_DB_NAME", "audittrail_dev"),
			SSLMode:  getEnv("AUDIT_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("AUDIT_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("AUDIT_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:          getEnv("AUDIT_SERVER_ADDR", ":8080"),
			ReadTimeout:   readTimeout,
			WriteTimeout:  writeTimeout,
			CORSOrigins:   corsOrigins,
			RatePerSecond: ratePerSecond,
			RateBurst:     rateBurst,
		},
		Chain: ChainConfig{
			AnchorKey:       getEnv("AUDIT_CHAIN_ANCHOR_KEY", ""),
			AnchorInterval:  anchorInterval,
			VerifyInterval:  verifyInterval,
			VerifyWindowHrs: verifyWindow,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// Anchor key is required (no insecure default).
	if c.Chain.AnchorKey == "" {
		return errors.New("AUDIT_CHAIN_ANCHOR_KEY is required")
	}
	if len(c.Chain.AnchorKey) < 32 {
		return errors.New("AUDIT_CHAIN_ANCHOR_KEY must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("AUDIT_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("AUDIT_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("AUDIT_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("AUDIT_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("AUDIT_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RatePerSecond <= 0 {
		return fmt.Errorf("AUDIT_SERVER_RATE_PER_SECOND must be positive, got %g", c.Server.RatePerSecond)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("AUDIT_SERVER_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Chain.AnchorInterval <= 0 {
		return fmt.Errorf("AUDIT_CHAIN_ANCHOR_INTERVAL must be positive, got %s", c.Chain.AnchorInterval)
	}
	if c.Chain.VerifyInterval <= 0 {
		return fmt.Errorf("AUDIT_CHAIN_VERIFY_INTERVAL must be positive, got %s", c.Chain.VerifyInterval)
	}
	if c.Chain.VerifyWindowHrs < 1 {
		return fmt.Errorf("AUDIT_CHAIN_VERIFY_WINDOW_HOURS must be >= 1, got %d", c.Chain.VerifyWindowHrs)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
