// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Browser origins allowed to call the API, for the guardian
	// dashboard. Empty disables CORS handling entirely.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (request rate limiting, health checks)
	RedisAddr string `koanf:"redis_addr"`

	// JWT Authentication. JWTSecretPrevious is set during a secret
	// rotation window so tokens signed with the old key stay valid.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTSecretPrevious string `koanf:"jwt_secret_previous"`

	// Notification throttling per zone
	NotifyRateWindow time.Duration `koanf:"notify_rate_window"`
	NotifyRateMax    int           `koanf:"notify_rate_max"`

	// Friend request polling
	FriendPollInterval time.Duration `koanf:"friend_poll_interval"`

	// Delivery channels. At least one must be configured.
	WebhookURL string `koanf:"webhook_url"`
	SMTPAddr   string `koanf:"smtp_addr"`
	SMTPFrom   string `koanf:"smtp_from"`

	// Location feed (tracker daemon)
	FeedURL string `koanf:"feed_url"`

	// Where the tracker daemon forwards decoded observations.
	IngestURL   string `koanf:"ingest_url"`
	IngestToken string `koanf:"ingest_token"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrNoDeliveryChannel  = errors.New("at least one of WEBHOOK_URL or SMTP_ADDR is required")
	ErrMissingSMTPFrom    = errors.New("SMTP_FROM is required when SMTP_ADDR is set")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidRateMax     = errors.New("NOTIFY_RATE_MAX must be a positive integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort          = 8080
	DefaultEnv           = "development"
	DefaultNotifyRateMax = 5
	DefaultIngestURL     = "http://localhost:8080/v1/locations"
)

// Default durations for throttling and polling.
const (
	DefaultNotifyRateWindow   = time.Hour
	DefaultFriendPollInterval = 10 * time.Second
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try TETHER_PORT first, then PORT for container platforms that set it
	port, portErr := getEnvIntOrDefaultMulti([]string{"TETHER_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	rateMax, rateMaxErr := getEnvIntOrDefault("NOTIFY_RATE_MAX", k.Int("notify_rate_max"), DefaultNotifyRateMax)
	if rateMaxErr != nil {
		loadErrs = append(loadErrs, rateMaxErr)
	}

	rateWindow, rateWindowErr := getEnvDurationOrDefault("NOTIFY_RATE_WINDOW", k.Duration("notify_rate_window"), DefaultNotifyRateWindow)
	if rateWindowErr != nil {
		loadErrs = append(loadErrs, rateWindowErr)
	}

	pollInterval, pollErr := getEnvDurationOrDefault("FRIEND_POLL_INTERVAL", k.Duration("friend_poll_interval"), DefaultFriendPollInterval)
	if pollErr != nil {
		loadErrs = append(loadErrs, pollErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:               port,
		Env:                getEnvOrDefaultMulti([]string{"TETHER_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		CORSAllowedOrigins: getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		DatabaseURL:        getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:          getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		JWTSecret:          getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecretPrevious:  getEnvOrKoanf("JWT_SECRET_PREVIOUS", k, "jwt_secret_previous"),
		NotifyRateWindow:   rateWindow,
		NotifyRateMax:      rateMax,
		FriendPollInterval: pollInterval,
		WebhookURL:         getEnvOrKoanf("WEBHOOK_URL", k, "webhook_url"),
		SMTPAddr:           getEnvOrKoanf("SMTP_ADDR", k, "smtp_addr"),
		SMTPFrom:           getEnvOrKoanf("SMTP_FROM", k, "smtp_from"),
		FeedURL:            getEnvOrKoanf("FEED_URL", k, "feed_url"),
		IngestURL:          getEnvOrDefaultMulti([]string{"INGEST_URL"}, k.String("ingest_url"), DefaultIngestURL),
		IngestToken:        getEnvOrKoanf("INGEST_TOKEN", k, "ingest_token"),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf returns the environment variable split on commas if set,
// otherwise the koanf list value. Blank entries are dropped.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		var out []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable as a duration if set,
// otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed.
func getEnvDurationOrDefault(envKey string, koanfVal time.Duration, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
		}
		return d, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.WebhookURL == "" && c.SMTPAddr == "" {
		errs = append(errs, ErrNoDeliveryChannel)
	}
	if c.SMTPAddr != "" && c.SMTPFrom == "" {
		errs = append(errs, ErrMissingSMTPFrom)
	}
	if c.NotifyRateMax <= 0 {
		errs = append(errs, ErrInvalidRateMax)
	}

	return errs
}

// GetJWTSecrets returns the current and previous signing secrets. The
// previous secret is empty outside a rotation window.
func (c *Config) GetJWTSecrets() (current, previous string) {
	return c.JWTSecret, c.JWTSecretPrevious
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                 fmt.Sprintf("%d", c.Port),
		"env":                  c.Env,
		"cors_allowed_origins": strings.Join(c.CORSAllowedOrigins, ","),
		"database_url":         maskDatabaseURL(c.DatabaseURL),
		"redis_addr":           c.RedisAddr,
		"jwt_secret":           maskSecret(c.JWTSecret),
		"jwt_secret_previous":  maskSecret(c.JWTSecretPrevious),
		"notify_rate_window":   c.NotifyRateWindow.String(),
		"notify_rate_max":      fmt.Sprintf("%d", c.NotifyRateMax),
		"friend_poll_interval": c.FriendPollInterval.String(),
		"webhook_url":          c.WebhookURL,
		"smtp_addr":            c.SMTPAddr,
		"smtp_from":            c.SMTPFrom,
		"feed_url":             c.FeedURL,
		"ingest_url":           c.IngestURL,
		"ingest_token":         maskSecret(c.IngestToken),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
