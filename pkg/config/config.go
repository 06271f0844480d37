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

// Portal backends understood by PORTAL_BACKEND.
const (
	BackendAPI      = "api"
	BackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Portal     PortalConfig
	Catalog    CatalogConfig
	Sessions   SessionConfig
	Dispatcher DispatcherConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PortalConfig selects and tunes the adapter used for the catalog, registration and submission services.
type PortalConfig struct {
	Backend string
	BaseURL string
	Token   string
	Timeout time.Duration
}

// CatalogConfig governs catalog search behaviour inside editing sessions.
type CatalogConfig struct {
	Debounce     time.Duration
	PageSize     int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SessionConfig controls the lifetime of idle editing sessions.
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// DispatcherConfig sizes the worker pool running catalog fetches.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
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
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("PORTAL_BACKEND")))
	if backend != BackendPostgres {
		backend = BackendAPI
	}
	cfg.Portal = PortalConfig{
		Backend: backend,
		BaseURL: strings.TrimRight(v.GetString("PORTAL_BASE_URL"), "/"),
		Token:   v.GetString("PORTAL_TOKEN"),
		Timeout: parseDuration(v.GetString("PORTAL_TIMEOUT"), 10*time.Second),
	}

	pageSize := v.GetInt("CATALOG_PAGE_SIZE")
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	cfg.Catalog = CatalogConfig{
		Debounce:     parseDuration(v.GetString("CATALOG_DEBOUNCE"), 500*time.Millisecond),
		PageSize:     pageSize,
		CacheEnabled: v.GetBool("ENABLE_CATALOG_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Sessions = SessionConfig{
		IdleTTL:       parseDuration(v.GetString("SESSION_IDLE_TTL"), 30*time.Minute),
		SweepInterval: parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Dispatcher = DispatcherConfig{
		Workers:    v.GetInt("DISPATCH_WORKERS"),
		BufferSize: v.GetInt("DISPATCH_BUFFER"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sim_mbkm")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PORTAL_BACKEND", BackendAPI)
	v.SetDefault("PORTAL_BASE_URL", "http://localhost:3000/api/v1")
	v.SetDefault("PORTAL_TOKEN", "")
	v.SetDefault("PORTAL_TIMEOUT", "10s")

	v.SetDefault("CATALOG_DEBOUNCE", "500ms")
	v.SetDefault("CATALOG_PAGE_SIZE", 20)
	v.SetDefault("ENABLE_CATALOG_CACHE", false)
	v.SetDefault("CATALOG_CACHE_TTL", "2m")

	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1m")

	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("DISPATCH_BUFFER", 64)
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
