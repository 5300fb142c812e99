package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "Jenga"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSessionTTL     = 30 * time.Minute
	defaultOTPTTL         = 5 * time.Minute
	defaultListCacheTTL   = 10 * time.Minute
	defaultPhoneRegion    = "IN"
	defaultAirtableTable  = "Members"
)

// OTP providers.
const (
	OTPProviderMSG91 = "msg91"
	OTPProviderLocal = "local"
)

// Directory providers.
const (
	DirectoryAirtable = "airtable"
	DirectoryPostgres = "postgres"
	DirectoryMemory   = "memory"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret  string
	SessionTTL time.Duration

	OTPProvider     string
	OTPTTL          time.Duration
	PhoneRegion     string
	MSG91AuthKey    string
	MSG91TemplateID string
	MSG91BaseURL    string

	DirectoryProvider string
	AirtableAPIKey    string
	AirtableBaseKey   string
	AirtableTable     string
	AirtableBaseURL   string
	DatabaseURL       string
	MigrateOnStart    bool

	RedisURL     string
	ListCacheTTL time.Duration
}

// Load reads an optional .env file, then configuration values from the
// environment. Missing secrets for the selected providers are an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		OTPProvider:       strings.ToLower(getEnv("OTP_PROVIDER", OTPProviderMSG91)),
		PhoneRegion:       strings.ToUpper(getEnv("PHONE_REGION", defaultPhoneRegion)),
		MSG91AuthKey:      os.Getenv("MSG91_AUTH_KEY"),
		MSG91TemplateID:   os.Getenv("MSG91_TEMPLATE_ID"),
		MSG91BaseURL:      os.Getenv("MSG91_BASE_URL"),
		DirectoryProvider: strings.ToLower(getEnv("DIRECTORY_PROVIDER", DirectoryAirtable)),
		AirtableAPIKey:    os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseKey:   os.Getenv("AIRTABLE_BASE_KEY"),
		AirtableTable:     getEnv("AIRTABLE_TABLE_NAME", defaultAirtableTable),
		AirtableBaseURL:   os.Getenv("AIRTABLE_BASE_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.ListCacheTTL, err = durationEnv("LIST_CACHE_TTL", defaultListCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid MIGRATE_ON_START: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	switch c.OTPProvider {
	case OTPProviderMSG91:
		if c.MSG91AuthKey == "" || c.MSG91TemplateID == "" {
			return fmt.Errorf("MSG91_AUTH_KEY and MSG91_TEMPLATE_ID must be set when OTP_PROVIDER=%s", c.OTPProvider)
		}
	case OTPProviderLocal:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when OTP_PROVIDER=%s", c.OTPProvider)
		}
		if !c.IsDev() {
			return fmt.Errorf("OTP_PROVIDER=%s is not allowed when APP_ENV=%s", c.OTPProvider, c.AppEnv)
		}
	default:
		return fmt.Errorf("unknown OTP_PROVIDER %q", c.OTPProvider)
	}

	switch c.DirectoryProvider {
	case DirectoryAirtable:
		if c.AirtableAPIKey == "" || c.AirtableBaseKey == "" {
			return fmt.Errorf("AIRTABLE_API_KEY and AIRTABLE_BASE_KEY must be set when DIRECTORY_PROVIDER=%s", c.DirectoryProvider)
		}
	case DirectoryPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when DIRECTORY_PROVIDER=%s", c.DirectoryProvider)
		}
	case DirectoryMemory:
		if !c.IsDev() {
			return fmt.Errorf("DIRECTORY_PROVIDER=%s is not allowed when APP_ENV=%s", c.DirectoryProvider, c.AppEnv)
		}
	default:
		return fmt.Errorf("unknown DIRECTORY_PROVIDER %q", c.DirectoryProvider)
	}
	return nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as an integer number of seconds, falling back
// to KEY as a Go duration string, then to fallback.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}
