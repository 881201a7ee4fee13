package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config application settings
type Config struct {
	Env         string
	AppSecret   string
	DBDriver    string // postgres, sqlite
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	SiteName    string
	SiteUrl     string
	LogLevel    string
	LogFormat   string

	Catalog CatalogConfig
	SMTP    SMTPConfig
	Google  GoogleConfig
	Gemini  GeminiConfig

	ResetTokenTTL time.Duration
	AuthRateLimit float64 // requests per second per client IP
	AuthRateBurst int
}

// CatalogConfig remote catalog documents
type CatalogConfig struct {
	ContentURL     string
	CreatorsURL    string
	CollectionsURL string        // optional, curated collections
	Revalidate     time.Duration // 0 keeps the snapshot for the process lifetime
	FetchTimeout   time.Duration
	WarmSpec       string // cron spec for the warm-up job, empty keeps only the startup load
}

// SMTPConfig outgoing mail for password resets
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether mail can be sent
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// GoogleConfig federated sign-in
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in is configured
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// GeminiConfig summaries, recommendations and discovery
type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string // empty for the public API
}

const defaultSecret = "your-secret-key-change-in-production"

// Load reads settings from the environment
func Load() *Config {
	expiryHours := getEnvInt("JWT_EXPIRY_HOURS", 72)

	driver := getEnv("DB_DRIVER", "postgres")
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		if driver == "sqlite" {
			dbURL = "gunvortv.db"
		} else {
			dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
				getEnv("DB_USER", "postgres"),
				getEnv("DB_PASSWORD", "postgres"),
				getEnv("DB_HOST", "localhost"),
				getEnv("DB_PORT", "5432"),
				getEnv("DB_NAME", "gunvortv"),
				getEnv("DB_SSLMODE", "disable"))
		}
	}

	siteURL := getEnv("SITE_URL", "http://localhost:5005")

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		AppSecret:   getEnv("APP_SECRET", getEnv("JWT_SECRET", defaultSecret)),
		DBDriver:    driver,
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(expiryHours) * time.Hour,
		Port:        getEnv("PORT", "5005"),
		SiteName:    getEnv("SITE_NAME", "Gunvor.TV"),
		SiteUrl:     siteURL,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		Catalog: CatalogConfig{
			ContentURL:     getEnv("CATALOG_CONTENT_URL", ""),
			CreatorsURL:    getEnv("CATALOG_CREATORS_URL", ""),
			CollectionsURL: getEnv("CATALOG_COLLECTIONS_URL", ""),
			Revalidate:     getEnvDuration("CATALOG_REVALIDATE", time.Hour),
			FetchTimeout:   getEnvDuration("CATALOG_FETCH_TIMEOUT", 10*time.Second),
			WarmSpec:       getEnv("CATALOG_WARM_SPEC", "@every 1h"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", siteURL+"/auth/google/callback"),
		},
		Gemini: GeminiConfig{
			APIKey:   getEnv("GEMINI_API_KEY", ""),
			Model:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Endpoint: getEnv("GEMINI_ENDPOINT", ""),
		},
		ResetTokenTTL: getEnvDuration("RESET_TOKEN_TTL", time.Hour),
		AuthRateLimit: getEnvFloat("AUTH_RATE_LIMIT", 1),
		AuthRateBurst: getEnvInt("AUTH_RATE_BURST", 5),
	}
}

// Validate checks settings that cannot fall back to a default
func (c *Config) Validate() error {
	if c.Catalog.ContentURL == "" || c.Catalog.CreatorsURL == "" {
		return fmt.Errorf("CATALOG_CONTENT_URL and CATALOG_CREATORS_URL are required")
	}
	if c.Env == "production" && c.AppSecret == defaultSecret {
		return fmt.Errorf("APP_SECRET must be set in production")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("3600")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
