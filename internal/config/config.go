package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort          = "5000"
	defaultDatabaseURL   = "medichat.db"
	defaultAccessTTL     = "15m"
	defaultRefreshTTL    = "168h"
	defaultVerifyTTL     = "24h"
	defaultResetTTL      = "1h"
	defaultAccessSecret  = "change-me-access-secret"
	defaultRefreshSecret = "change-me-refresh-secret"
	defaultFrontendURL   = "http://localhost:5173"
	defaultPubMedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	VerifyTokenTTL   time.Duration
	ResetTokenTTL    time.Duration

	CookieSecure bool

	FrontendURL        string
	CORSAllowedOrigins []string

	BrevoAPIKey string
	MailFrom    string

	PubMedBaseURL string
}

// Load reads configuration from the environment. A .env file is honored when
// present so local development matches deployment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:           strings.ToLower(getEnv("APP_ENV", "dev")),
		Port:             getEnv("PORT", defaultPort),
		DatabaseURL:      getEnv("DATABASE_URL", defaultDatabaseURL),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", defaultAccessSecret),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", defaultRefreshSecret),
		FrontendURL:      getEnv("FRONTEND_URL", defaultFrontendURL),
		BrevoAPIKey:      os.Getenv("BREVO_API_KEY"),
		MailFrom:         getEnv("MAIL_FROM", "no-reply@medichat.local"),
		PubMedBaseURL:    getEnv("PUBMED_BASE_URL", defaultPubMedBaseURL),
	}

	var err error
	if cfg.AccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultAccessTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", defaultRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.VerifyTokenTTL, err = parseDurationEnv("VERIFY_TOKEN_TTL", defaultVerifyTTL); err != nil {
		return nil, err
	}
	if cfg.ResetTokenTTL, err = parseDurationEnv("RESET_TOKEN_TTL", defaultResetTTL); err != nil {
		return nil, err
	}

	cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if cfg.AppEnv == "prod" {
		if cfg.JWTAccessSecret == defaultAccessSecret || cfg.JWTRefreshSecret == defaultRefreshSecret {
			return nil, fmt.Errorf("JWT secrets must be set in prod")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}
