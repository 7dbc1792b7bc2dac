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

const devSecretKey = "insecure-dev-secret-change-me"

// Config keeps runtime settings for the tracker service.
type Config struct {
	ListenAddr         string
	DatabaseURL        string
	RedisURL           string
	SecretKey          string
	SessionTTL         time.Duration
	TokenTTL           time.Duration
	PageSize           int
	DashboardCacheTTL  time.Duration
	LoginRedirectURL   string
	LogoutRedirectURL  string
	LoginRatePerMinute int
	ReminderTime       string
	TelegramToken      string
	CookieSecure       bool
	Debug              bool
	LogFormat          string
}

// Load reads configuration from environment variables with sane defaults.
// Variables from ENV_FILE, or ./.env when present, fill in anything the
// environment does not already set.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	var errs []error
	cfg := Config{
		ListenAddr:         stringEnv("LISTEN_ADDR", ":8000"),
		DatabaseURL:        stringEnv("DATABASE_URL", "project_tracker.db"),
		RedisURL:           stringEnv("REDIS_URL", "redis://localhost:6379/0"),
		SecretKey:          strings.TrimSpace(os.Getenv("SECRET_KEY")),
		SessionTTL:         durationEnv("SESSION_TTL", 14*24*time.Hour, &errs),
		TokenTTL:           durationEnv("TOKEN_TTL", 24*time.Hour, &errs),
		PageSize:           intEnv("PAGE_SIZE", 25, &errs),
		DashboardCacheTTL:  durationEnv("DASHBOARD_CACHE_TTL", 0, &errs),
		LoginRedirectURL:   stringEnv("LOGIN_REDIRECT_URL", "/dashboard/"),
		LogoutRedirectURL:  stringEnv("LOGOUT_REDIRECT_URL", "/"),
		LoginRatePerMinute: intEnv("LOGIN_RATE_PER_MINUTE", 20, &errs),
		TelegramToken:      strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		CookieSecure:       boolEnv("COOKIE_SECURE", false, &errs),
		Debug:              boolEnv("DEBUG", false, &errs),
		LogFormat:          strings.ToLower(stringEnv("LOG_FORMAT", "text")),
	}

	cfg.ReminderTime = "09:00"
	if raw, ok := os.LookupEnv("REMINDER_TIME"); ok {
		cfg.ReminderTime = strings.TrimSpace(raw)
	}

	if cfg.SecretKey == "" {
		if cfg.Debug {
			cfg.SecretKey = devSecretKey
		} else {
			errs = append(errs, errors.New("SECRET_KEY is required"))
		}
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", cfg.PageSize))
	}
	if cfg.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}
	if cfg.ReminderTime != "" {
		if _, err := time.Parse("15:04", cfg.ReminderTime); err != nil {
			errs = append(errs, fmt.Errorf("REMINDER_TIME must be HH:MM, got %q", cfg.ReminderTime))
		}
	}

	return cfg, errors.Join(errs...)
}

func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func boolEnv(key string, def bool, errs *[]error) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// durationEnv accepts Go durations ("90s", "336h") or a bare number of seconds.
func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
