package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort          = "8080"
	defaultDatabaseURL   = "permadrop.db"
	defaultJWTSecret     = "change-me-jwt-secret"
	defaultJWTTTL        = "168h"
	defaultLoginTokenTTL = "15m"

	defaultFreeMaxBytes      = 100 * 1024
	defaultMaxFileBytes      = 100 * 1024 * 1024
	defaultSponsoredMaxBytes = 100 * 1024

	defaultMinPriceUSD   = "1.00"
	defaultPricePerMBUSD = "0.05"
)

type Config struct {
	AppEnv      string
	Port        string
	BaseURL     string // public URL of this service, used in magic links
	DatabaseURL string
	RedisAddr   string // empty disables the share-link cache

	JWTSecret     string
	JWTTTL        time.Duration
	LoginTokenTTL time.Duration

	LogLevel string
	LogPath  string

	// Hosted-checkout payment gateway.
	Checkout CheckoutConfig

	// Permanent-storage network gateway.
	Blobstore BlobstoreConfig

	// Pricing and size limits for paid uploads.
	MinPriceUSD   float64
	PricePerMBUSD float64
	FreeMaxBytes  int64
	MaxFileBytes  int64

	SMTP SMTPConfig
}

type CheckoutConfig struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	CancelURL  string
}

type BlobstoreConfig struct {
	GatewayURL        string
	PublicBaseURL     string
	APIKey            string
	SponsoredMaxBytes int64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = getEnv("PORT", defaultPort)
	cfg.BaseURL = strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+cfg.Port), "/")
	cfg.DatabaseURL = getEnv("DATABASE_URL", defaultDatabaseURL)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.LoginTokenTTL, err = parseDurationEnv("LOGIN_TOKEN_TTL", defaultLoginTokenTTL); err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogPath = os.Getenv("LOG_PATH")

	cfg.Checkout = CheckoutConfig{
		BaseURL:    strings.TrimRight(getEnv("CHECKOUT_BASE_URL", "https://api.checkout.test"), "/"),
		APIKey:     os.Getenv("CHECKOUT_API_KEY"),
		SuccessURL: getEnv("CHECKOUT_SUCCESS_URL", cfg.BaseURL+"/upload/success"),
		CancelURL:  getEnv("CHECKOUT_CANCEL_URL", cfg.BaseURL+"/upload/cancel"),
	}

	cfg.Blobstore = BlobstoreConfig{
		GatewayURL:    strings.TrimRight(getEnv("BLOB_GATEWAY_URL", "https://node.permastore.test"), "/"),
		PublicBaseURL: strings.TrimRight(getEnv("BLOB_PUBLIC_BASE_URL", "https://permastore.test"), "/"),
		APIKey:        os.Getenv("BLOB_API_KEY"),
	}

	if cfg.MinPriceUSD, err = parseFloatEnv("MIN_PRICE_USD", defaultMinPriceUSD); err != nil {
		return nil, err
	}
	if cfg.PricePerMBUSD, err = parseFloatEnv("PRICE_PER_MB_USD", defaultPricePerMBUSD); err != nil {
		return nil, err
	}

	cfg.FreeMaxBytes = parseInt64Env("FREE_MAX_BYTES", defaultFreeMaxBytes)
	cfg.MaxFileBytes = parseInt64Env("MAX_FILE_BYTES", defaultMaxFileBytes)
	// Same value as the free tier today, but configured separately so the
	// network path choice can diverge from the billing threshold.
	cfg.Blobstore.SponsoredMaxBytes = parseInt64Env("SPONSORED_MAX_BYTES", defaultSponsoredMaxBytes)

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     int(parseInt64Env("SMTP_PORT", 587)),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.LoginTokenTTL <= 0 {
		return fmt.Errorf("LOGIN_TOKEN_TTL must be > 0")
	}
	if cfg.FreeMaxBytes <= 0 || cfg.MaxFileBytes <= cfg.FreeMaxBytes {
		return fmt.Errorf("MAX_FILE_BYTES must exceed FREE_MAX_BYTES and both must be positive")
	}
	if cfg.MinPriceUSD < 0 || cfg.PricePerMBUSD <= 0 {
		return fmt.Errorf("pricing configuration must be positive")
	}

	if IsProdLike(cfg.AppEnv) {
		if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.Checkout.APIKey == "" {
			return fmt.Errorf("in prod/release CHECKOUT_API_KEY must be set")
		}
		if cfg.Blobstore.APIKey == "" {
			return fmt.Errorf("in prod/release BLOB_API_KEY must be set")
		}
	}
	return nil
}

// IsProdLike reports whether env names a deployment that must not run
// with development defaults.
func IsProdLike(env string) bool {
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func parseInt64Env(name string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
