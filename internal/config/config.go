// Package config reads service settings from the environment, with an
// optional .env file for local runs.
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

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

type Config struct {
	Port    string
	BaseURL string

	SigningSecret     string
	TokenTTL          time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
	CommentMaxLength  int
	FingerprintSalt   string
	TrustProxyHeaders bool
	// SaltFromSecret is set when FINGERPRINT_SALT is unset and the signing
	// secret doubles as the salt. Rotating the secret then also changes every
	// fingerprint, so returning submitters add a new entry instead of
	// overwriting their old one.
	SaltFromSecret bool

	StoreDriver string
	MongoURI    string
	DBName      string
	DatabaseURL string
	BadgerPath  string
	RedisURL    string

	LogLevel    string
	CORSOrigins []string

	ResendAPIKey      string
	FromEmail         string
	MailRatePerSecond float64

	OpenAIAPIKey string
	OpenAIModel  string
}

// Load builds a Config from the environment. A missing .env file is not an
// error; env vars set directly take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		BaseURL:           strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		SigningSecret:     getEnv("FEEDBACK_SECRET_KEY", ""),
		FingerprintSalt:   getEnv("FINGERPRINT_SALT", ""),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		MongoURI:          getEnv("MONGODB_URI", ""),
		DBName:            getEnv("DB_NAME", "ideas"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		BadgerPath:        getEnv("BADGER_PATH", "./data/ideas"),
		RedisURL:          getEnv("REDIS_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		FromEmail:         getEnv("FROM_EMAIL", "Daily Ideas <ideas@example.com>"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}

	var errs []error
	var err error

	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitMax, err = getInt("RATE_LIMIT_MAX", 10); err != nil {
		errs = append(errs, err)
	}
	windowSecs, err := getInt("RATE_LIMIT_WINDOW", 3600)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.RateLimitWindow = time.Duration(windowSecs) * time.Second
	if cfg.CommentMaxLength, err = getInt("COMMENT_MAX_LENGTH", 1000); err != nil {
		errs = append(errs, err)
	}
	if cfg.TrustProxyHeaders, err = getBool("TRUST_PROXY_HEADERS", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.MailRatePerSecond, err = getFloat("MAIL_RATE_PER_SECOND", 2); err != nil {
		errs = append(errs, err)
	}

	if cfg.FingerprintSalt == "" {
		cfg.FingerprintSalt = cfg.SigningSecret
		cfg.SaltFromSecret = true
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.SigningSecret == "" {
		errs = append(errs, errors.New("FEEDBACK_SECRET_KEY is required"))
	}
	if c.RateLimitMax < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be at least 1"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.CommentMaxLength < 1 {
		errs = append(errs, errors.New("COMMENT_MAX_LENGTH must be at least 1"))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, errors.New("TOKEN_TTL must not be negative"))
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverBadger:
		if c.BadgerPath == "" {
			errs = append(errs, errors.New("BADGER_PATH is required for the badger store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// getDuration accepts Go durations ("72h") and bare seconds ("3600").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
