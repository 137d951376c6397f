package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data source kinds
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceMock     = "mock"
)

// Layout store kinds
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Instance id schemes
const (
	IDSchemeUUID    = "uuid"
	IDSchemeCounter = "counter"
)

// Config holds all configuration for the chart service
type Config struct {
	// Common
	Environment string
	LogLevel    string

	HTTP     HTTPConfig
	Data     DataConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Layout   LayoutConfig
	Registry RegistryConfig
}

// HTTPConfig holds the REST surface configuration
type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	JWTSecret       string // auth is enforced only when set
	CORSOrigins     []string
	RateLimitRPS    int // per client IP, 0 disables
}

// DataConfig selects where candles come from
type DataConfig struct {
	Source string // "file", "postgres" or "mock"
	Path   string // JSON or CSV file for the file source
	Symbol string
	Limit  int // most recent candles to load, 0 for all
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns a lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LayoutConfig holds layout persistence configuration
type LayoutConfig struct {
	Store      string // "memory" or "redis"
	KeyPrefix  string
	PresetPath string // optional YAML preset applied at startup
}

// RegistryConfig holds indicator registry configuration
type RegistryConfig struct {
	IDScheme string // "uuid" or "counter"
	IDPrefix string
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8090),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			JWTSecret:       getEnv("HTTP_JWT_SECRET", ""),
			CORSOrigins:     getEnvAsStringSlice("HTTP_CORS_ORIGINS", []string{"*"}),
			RateLimitRPS:    getEnvAsInt("HTTP_RATE_LIMIT_RPS", 0),
		},
		Data: DataConfig{
			Source: getEnv("DATA_SOURCE", SourceFile),
			Path:   getEnv("DATA_PATH", "data/candles.json"),
			Symbol: getEnv("DATA_SYMBOL", ""),
			Limit:  getEnvAsInt("DATA_LIMIT", 0),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "market_data"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Layout: LayoutConfig{
			Store:      getEnv("LAYOUT_STORE", StoreMemory),
			KeyPrefix:  getEnv("LAYOUT_KEY_PREFIX", "layout:"),
			PresetPath: getEnv("LAYOUT_PRESET_PATH", ""),
		},
		Registry: RegistryConfig{
			IDScheme: getEnv("REGISTRY_ID_SCHEME", IDSchemeUUID),
			IDPrefix: getEnv("REGISTRY_ID_PREFIX", "ind"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT_RPS cannot be negative")
	}
	if c.Data.Limit < 0 {
		return fmt.Errorf("DATA_LIMIT cannot be negative")
	}

	switch c.Data.Source {
	case SourceFile:
		if c.Data.Path == "" {
			return fmt.Errorf("DATA_PATH is required for the file source")
		}
	case SourcePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres source")
		}
		if c.Data.Symbol == "" {
			return fmt.Errorf("DATA_SYMBOL is required for the postgres source")
		}
	case SourceMock:
	default:
		return fmt.Errorf("DATA_SOURCE must be %q, %q or %q, got %q", SourceFile, SourcePostgres, SourceMock, c.Data.Source)
	}

	switch c.Layout.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis layout store")
		}
	default:
		return fmt.Errorf("LAYOUT_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.Layout.Store)
	}

	switch c.Registry.IDScheme {
	case IDSchemeUUID, IDSchemeCounter:
	default:
		return fmt.Errorf("REGISTRY_ID_SCHEME must be %q or %q, got %q", IDSchemeUUID, IDSchemeCounter, c.Registry.IDScheme)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
