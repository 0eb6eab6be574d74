package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SHOPTERM_"

// Session storage backends.
const (
	SessionBackendSQLite  = "sqlite"
	SessionBackendKeyring = "keyring"
)

type Config struct {
	APIBaseURL        string
	CacheDir          string
	DBPath            string
	LogPath           string
	LogLevel          string
	LogFormat         string
	SessionBackend    string
	RequestTimeout    time.Duration
	RefreshTimeout    time.Duration
	RequestsPerSecond float64
	ProductListTTL    time.Duration
	ProductTTL        time.Duration
	CategoryTTL       time.Duration
	WatchInterval     time.Duration
	PageSize          int
}

func Default() Config {
	cacheDir := filepath.Join(userConfigDir(), "shopterm")
	return Config{
		APIBaseURL:        "http://127.0.0.1:8000/api",
		CacheDir:          cacheDir,
		DBPath:            filepath.Join(cacheDir, "cache.db"),
		LogPath:           filepath.Join(cacheDir, "debug.log"),
		LogLevel:          "info",
		LogFormat:         "json",
		SessionBackend:    SessionBackendSQLite,
		RequestTimeout:    15 * time.Second,
		RefreshTimeout:    10 * time.Second,
		RequestsPerSecond: 20,
		ProductListTTL:    60 * time.Second,
		ProductTTL:        5 * time.Minute,
		CategoryTTL:       1 * time.Hour,
		WatchInterval:     45 * time.Second,
		PageSize:          16,
	}
}

// Load returns Default() overlaid with a .env file (if present) and SHOPTERM_*
// environment variables.
func Load() (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg := Default()
	cfg.APIBaseURL = strings.TrimRight(getEnv("API_URL", cfg.APIBaseURL), "/")
	if dir := getEnv("CACHE_DIR", ""); dir != "" {
		cfg.CacheDir = dir
		cfg.DBPath = filepath.Join(dir, "cache.db")
		cfg.LogPath = filepath.Join(dir, "debug.log")
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.SessionBackend = getEnv("SESSION_BACKEND", cfg.SessionBackend)

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.RefreshTimeout, err = getDuration("REFRESH_TIMEOUT", cfg.RefreshTimeout); err != nil {
		return cfg, err
	}
	if cfg.WatchInterval, err = getDuration("WATCH_INTERVAL", cfg.WatchInterval); err != nil {
		return cfg, err
	}
	if v := getEnv("REQUESTS_PER_SECOND", ""); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("parsing %sREQUESTS_PER_SECOND: %w", envPrefix, err)
		}
		cfg.RequestsPerSecond = rps
	}
	if v := getEnv("PAGE_SIZE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parsing %sPAGE_SIZE: %w", envPrefix, err)
		}
		cfg.PageSize = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q", c.APIBaseURL)
	}
	switch c.SessionBackend {
	case SessionBackendSQLite, SessionBackendKeyring:
	default:
		return fmt.Errorf("unknown session backend %q (want %s or %s)",
			c.SessionBackend, SessionBackendSQLite, SessionBackendKeyring)
	}
	if c.RequestTimeout <= 0 || c.RefreshTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100, got %d", c.PageSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s%s: %w", envPrefix, key, err)
	}
	return d, nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
