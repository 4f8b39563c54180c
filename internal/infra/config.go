package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ResultStoreMemory = "memory"
	ResultStoreRedis  = "redis"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	DBMaxConns         int
	JWTSecret          string
	GeoIPDBPath        string
	DefaultLocale      string
	DefaultLanguage    string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerMin    int

	ResultStore      string
	ResultTTL        time.Duration
	ResultMaxEntries int
	RedisURL         string

	PipelinesBaseURL    string
	PipelinesAPIKey     string
	PipelinesConfigPath string

	JournalRetention time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		DefaultLanguage:     getEnv("DEFAULT_LANGUAGE", "English"),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ShutdownTimeout:     time.Second * time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ResultStore:         strings.ToLower(getEnv("RESULT_STORE", ResultStoreMemory)),
		ResultTTL:           time.Second * time.Duration(getEnvInt("RESULT_TTL_SECONDS", 120)),
		ResultMaxEntries:    getEnvInt("RESULT_MAX_ENTRIES", 1_000_000),
		RedisURL:            os.Getenv("REDIS_URL"),
		PipelinesBaseURL:    os.Getenv("PIPELINES_BASE_URL"),
		PipelinesAPIKey:     os.Getenv("PIPELINES_API_KEY"),
		PipelinesConfigPath: os.Getenv("PIPELINES_CONFIG"),
		JournalRetention:    time.Hour * time.Duration(getEnvInt("JOURNAL_RETENTION_HOURS", 72)),
	}

	switch cfg.ResultStore {
	case ResultStoreMemory:
	case ResultStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when RESULT_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("RESULT_STORE must be %q or %q, got %q", ResultStoreMemory, ResultStoreRedis, cfg.ResultStore)
	}

	if cfg.ResultTTL <= 0 {
		return nil, fmt.Errorf("RESULT_TTL_SECONDS must be positive")
	}
	if cfg.ResultMaxEntries <= 0 {
		return nil, fmt.Errorf("RESULT_MAX_ENTRIES must be positive")
	}

	if cfg.PipelinesBaseURL == "" && cfg.PipelinesConfigPath == "" {
		return nil, fmt.Errorf("PIPELINES_BASE_URL or PIPELINES_CONFIG is required")
	}

	return cfg, nil
}

// JournalEnabled reports whether a database is configured for the transition journal.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
