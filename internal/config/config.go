package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string
	DBMigrate    bool

	// Observability (optional)
	SentryDSN string

	// AI (optional, fallback plans and suggestions without a key)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// Rate limit for step generation, per client IP
	GenerateRateLimit  int
	GenerateRateWindow time.Duration

	// Calendar day used for the daily goal suggestion
	SuggestionTimezone string

	// Export archive storage (S3-compatible, optional)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "DogLog"),
		AppEnv:  envString("APP_ENV", "development"),
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/doglog.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		DBMigrate:    envBool("DB_MIGRATE", true),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// AI
		OpenAIAPIKey:  envString("OPENAI_API_KEY", ""),
		OpenAIBaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:   envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: envDuration("OPENAI_TIMEOUT", 20*time.Second),

		GenerateRateLimit:  envInt("GENERATE_RATE_LIMIT", 10),
		GenerateRateWindow: envDuration("GENERATE_RATE_WINDOW", time.Minute),

		SuggestionTimezone: envString("SUGGESTION_TIMEZONE", "UTC"),

		// Storage
		S3Region:    envString("S3_REGION", "us-east-1"),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction stops a production deployment that would write to the
// default local SQLite file.
func validateProduction(cfg *Config) {
	if os.Getenv("DB_CONNECTION") == "" {
		slog.Error("production deployment requires DB_CONNECTION",
			"hint", "set APP_ENV=development to use the local SQLite file")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StorageEnabled reports whether export archives can be written.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}

// Location returns the suggestion timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SuggestionTimezone)
	if err != nil {
		slog.Warn("config invalid timezone, using UTC", "key", "SUGGESTION_TIMEZONE", "value", c.SuggestionTimezone)
		return time.UTC
	}
	return loc
}
