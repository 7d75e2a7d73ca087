package config

import (
	"errors"
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
	Env       string
	Port      int
	APIPrefix string

	ControlDB     DatabaseConfig
	TenantDB      TenantDatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Advisory      AdvisoryConfig
	Notifications NotificationsConfig
	TenantCache   TenantCacheConfig
	Export        ExportConfig
}

// DatabaseConfig describes the control-plane database holding the school registry.
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

// TenantDatabaseConfig describes how per-school databases are reached.
// All tenant databases live on the same cluster; only the database name varies.
type TenantDatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdvisoryConfig configures the external AI advisory collaborator.
type AdvisoryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NotificationsConfig tunes the fire-and-forget dispatcher.
type NotificationsConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
	WebhookURL string
}

// TenantCacheConfig governs registry row caching in Redis.
type TenantCacheConfig struct {
	TTL time.Duration
}

// ExportConfig toggles bibliography export endpoints.
type ExportConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.ControlDB = DatabaseConfig{
		Host:         v.GetString("CONTROL_DB_HOST"),
		Port:         v.GetInt("CONTROL_DB_PORT"),
		User:         v.GetString("CONTROL_DB_USER"),
		Password:     v.GetString("CONTROL_DB_PASSWORD"),
		Name:         v.GetString("CONTROL_DB_NAME"),
		SSLMode:      v.GetString("CONTROL_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("CONTROL_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("CONTROL_DB_MAX_IDLE_CONNS"),
	}

	cfg.TenantDB = TenantDatabaseConfig{
		Host:         v.GetString("TENANT_DB_HOST"),
		Port:         v.GetInt("TENANT_DB_PORT"),
		User:         v.GetString("TENANT_DB_USER"),
		Password:     v.GetString("TENANT_DB_PASSWORD"),
		SSLMode:      v.GetString("TENANT_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("TENANT_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("TENANT_DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Advisory = AdvisoryConfig{
		BaseURL: v.GetString("ADVISORY_BASE_URL"),
		APIKey:  v.GetString("ADVISORY_API_KEY"),
		Timeout: parseDuration(v.GetString("ADVISORY_TIMEOUT"), 30*time.Second),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:    v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		WebhookURL: v.GetString("NOTIFICATIONS_WEBHOOK_URL"),
	}

	cfg.TenantCache = TenantCacheConfig{
		TTL: parseDuration(v.GetString("TENANT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Export = ExportConfig{Enabled: v.GetBool("ENABLE_EXPORTS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("CONTROL_DB_HOST", "localhost")
	v.SetDefault("CONTROL_DB_PORT", 5432)
	v.SetDefault("CONTROL_DB_USER", "postgres")
	v.SetDefault("CONTROL_DB_PASSWORD", "postgres")
	v.SetDefault("CONTROL_DB_NAME", "edumesh_control")
	v.SetDefault("CONTROL_DB_SSL_MODE", "disable")
	v.SetDefault("CONTROL_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("CONTROL_DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("TENANT_DB_HOST", "localhost")
	v.SetDefault("TENANT_DB_PORT", 5432)
	v.SetDefault("TENANT_DB_USER", "postgres")
	v.SetDefault("TENANT_DB_PASSWORD", "postgres")
	v.SetDefault("TENANT_DB_SSL_MODE", "disable")
	v.SetDefault("TENANT_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("TENANT_DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADVISORY_BASE_URL", "http://localhost:9090")
	v.SetDefault("ADVISORY_API_KEY", "")
	v.SetDefault("ADVISORY_TIMEOUT", "30s")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_WEBHOOK_URL", "")

	v.SetDefault("TENANT_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_EXPORTS", true)
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
