package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	PublicURL string
	LogLevel  string
	Session   SessionConfig
	Report    ReportConfig
}

// SessionConfig holds visit session configuration
type SessionConfig struct {
	Secret          string
	SecretGenerated bool
	TTL             time.Duration
	SweepInterval   time.Duration
	CookieName      string
	SecureCookie    bool
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	FontPath       string
	MaxUploadBytes int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "2h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	sweep, err := time.ParseDuration(getEnv("SESSION_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_SWEEP_INTERVAL: %w", err)
	}
	maxMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "10"), 10, 64)
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer")
	}

	// Sessions only live as long as the process, so a random secret is acceptable
	secret := os.Getenv("SESSION_SECRET")
	generated := false
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		generated = true
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3210"),
		PublicURL: os.Getenv("PUBLIC_URL"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		Session: SessionConfig{
			Secret:          secret,
			SecretGenerated: generated,
			TTL:             ttl,
			SweepInterval:   sweep,
			CookieName:      getEnv("SESSION_COOKIE", "visit_session"),
			SecureCookie:    getEnv("SESSION_SECURE_COOKIE", "false") == "true",
		},
		Report: ReportConfig{
			FontPath:       getEnv("REPORT_FONT_PATH", "arial.ttf"),
			MaxUploadBytes: maxMB << 20,
		},
	}, nil
}

// IsProduction reports whether NODE_ENV is production
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
