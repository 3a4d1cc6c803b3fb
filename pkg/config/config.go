package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DefaultAPIBaseURL is used when API_BASE_URL is not set
const DefaultAPIBaseURL = "http://wine.runasp.net"

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

// APIConfig holds settings for the remote REST backend
type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// DBConfig holds database configuration
type DBConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// CheckoutConfig holds payment orchestration timings
type CheckoutConfig struct {
	PollAttempts       int
	PollInterval       time.Duration
	SuccessRedirect    time.Duration
	ProcessingRedirect time.Duration
	MarkerTTL          time.Duration
}

// ListingConfig holds product grid page sizes
type ListingConfig struct {
	NarrowPageSize int
	WidePageSize   int
	Breakpoint     int
}

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	API         APIConfig
	DB          DBConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Checkout    CheckoutConfig
	Listing     ListingConfig
}

// Load loads configuration from .env and environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "winehouse-storefront"),
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Env:         getEnv("APP_ENV", "development"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		API: APIConfig{
			BaseURL:    apiBaseURL(),
			Timeout:    getEnvAsDuration("API_TIMEOUT", 15*time.Second),
			RetryCount: getEnvAsInt("API_RETRY_COUNT", 0),
		},
		DB: DBConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "winehouse"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "winehouse"),
		},
		Checkout: CheckoutConfig{
			PollAttempts:       getEnvAsInt("PAYMENT_POLL_ATTEMPTS", 5),
			PollInterval:       getEnvAsDuration("PAYMENT_POLL_INTERVAL", 2*time.Second),
			SuccessRedirect:    getEnvAsDuration("PAYMENT_SUCCESS_REDIRECT", 3*time.Second),
			ProcessingRedirect: getEnvAsDuration("PAYMENT_PROCESSING_REDIRECT", 6*time.Second),
			MarkerTTL:          getEnvAsDuration("PENDING_MARKER_TTL", 72*time.Hour),
		},
		Listing: ListingConfig{
			NarrowPageSize: getEnvAsInt("LISTING_NARROW_PAGE_SIZE", 8),
			WidePageSize:   getEnvAsInt("LISTING_WIDE_PAGE_SIZE", 9),
			Breakpoint:     getEnvAsInt("LISTING_BREAKPOINT", 900),
		},
	}

	if cfg.Checkout.PollAttempts < 1 {
		return nil, fmt.Errorf("PAYMENT_POLL_ATTEMPTS must be at least 1, got %d", cfg.Checkout.PollAttempts)
	}
	if cfg.Listing.NarrowPageSize < 1 || cfg.Listing.WidePageSize < 1 {
		return nil, fmt.Errorf("listing page sizes must be positive")
	}

	return cfg, nil
}

// LogFields returns the configuration as zap fields for the startup log
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("api_base_url", c.API.BaseURL),
		zap.Bool("db_enabled", c.DB.Enabled),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
	}
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// apiBaseURL falls back to the hosted backend when the variable is unset or blank
func apiBaseURL() string {
	base := strings.TrimSpace(getEnv("API_BASE_URL", ""))
	if base == "" {
		base = DefaultAPIBaseURL
	}
	return strings.TrimRight(base, "/")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	switch getEnv(key, "") {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
