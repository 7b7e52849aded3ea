package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	API      APIConfig
	Catalog  CatalogConfig
	Session  SessionConfig
	Cache    CacheConfig
	Log      LogConfig
	Debug    DebugConfig
}

// APIConfig addresses the remote photo-management API.
type APIConfig struct {
	Route     string
	DataRoute string
	Timeout   time.Duration
}

// CatalogConfig tunes the catalog view defaults.
type CatalogConfig struct {
	PageLimit     int
	PagerMainSize int
	PagerEndSize  int
	Debounce      time.Duration
	WatchInterval time.Duration
}

// SessionConfig controls local credential persistence.
type SessionConfig struct {
	DBPath string
}

// CacheConfig tunes the tag-suggestion cache.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DebugConfig gates the watch-mode status/metrics server.
type DebugConfig struct {
	Enabled bool
	Port    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing .env is fine; defaults and the process environment apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.API = APIConfig{
		Route:     strings.TrimRight(v.GetString("API_ROUTE"), "/"),
		DataRoute: strings.TrimRight(v.GetString("API_DATA_ROUTE"), "/"),
		Timeout:   parseDuration(v.GetString("API_TIMEOUT"), 30*time.Second),
	}

	cfg.Catalog = CatalogConfig{
		PageLimit:     v.GetInt("ROWS_PER_TABLE"),
		PagerMainSize: v.GetInt("PAGER_MAIN_SIZE"),
		PagerEndSize:  v.GetInt("PAGER_END_SIZE"),
		Debounce:      parseDuration(v.GetString("SEARCH_DEBOUNCE"), time.Second),
		WatchInterval: parseDuration(v.GetString("WATCH_INTERVAL"), time.Minute),
	}

	cfg.Session = SessionConfig{
		DBPath: v.GetString("SESSION_DB_PATH"),
	}

	cfg.Cache = CacheConfig{
		Size: v.GetInt("TAG_CACHE_SIZE"),
		TTL:  parseDuration(v.GetString("TAG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Debug = DebugConfig{
		Enabled: v.GetBool("ENABLE_DEBUG_SERVER"),
		Port:    v.GetInt("DEBUG_PORT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("API_ROUTE", "http://localhost:8000")
	v.SetDefault("API_DATA_ROUTE", "http://localhost:8000/api/v1")
	v.SetDefault("API_TIMEOUT", "30s")

	v.SetDefault("ROWS_PER_TABLE", 25)
	v.SetDefault("PAGER_MAIN_SIZE", 5)
	v.SetDefault("PAGER_END_SIZE", 2)
	v.SetDefault("SEARCH_DEBOUNCE", "1s")
	v.SetDefault("WATCH_INTERVAL", "1m")

	v.SetDefault("SESSION_DB_PATH", ".photocat/session.db")

	v.SetDefault("TAG_CACHE_SIZE", 256)
	v.SetDefault("TAG_CACHE_TTL", "5m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DEBUG_SERVER", false)
	v.SetDefault("DEBUG_PORT", 9190)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
