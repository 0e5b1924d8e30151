package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Database drivers understood by the store factory.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Gemini        GeminiConfig
	Storage       StorageConfig
	Ingest        IngestConfig
	Categories    CategoriesConfig
	Notify        NotifyConfig
	Log           LogConfig
	Cache         CacheConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// Enabled reports whether the assistant has credentials to call the model.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	MaxUploadBytes     int64
}

// Addr returns host:port for the HTTP listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	MaxConns   int
	SQLitePath string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	Issuer    string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	ServiceName    string
}

type StorageConfig struct {
	Type      string
	LocalPath string
	GCSBucket string
}

type IngestConfig struct {
	InboxDir         string
	ProcessedDir     string
	Schedule         string
	DefaultBankName  string
	DefaultAccountID string
	KnownBanks       []string
}

type CategoriesConfig struct {
	RulesPath string
}

type NotifyConfig struct {
	ResendAPIKey string
	From         string
	To           []string
}

// Enabled reports whether ingest summary emails should be sent.
func (c NotifyConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.From != "" && len(c.To) > 0
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	SummaryTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			AllowedOrigins:     getEnvAsSlice("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxUploadBytes:     int64(getEnvAsInt("SERVER_MAX_UPLOAD_MB", 20)) << 20,
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverPostgres),
			Host:       getEnv("POSTGRES_HOST", "localhost"),
			Port:       getEnvAsInt("POSTGRES_PORT", 5432),
			User:       getEnv("POSTGRES_USER", "postgres"),
			Password:   getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:   getEnv("POSTGRES_DB", "finova"),
			SSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:   getEnvAsInt("POSTGRES_MAX_CONNS", 10),
			SQLitePath: getEnv("SQLITE_PATH", "finova.db"),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("JWT_SECRET", "changeme"),
			Issuer:    getEnv("JWT_ISSUER", "finova"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "finova"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/uploads"),
			GCSBucket: getEnv("STORAGE_GCS_BUCKET", ""),
		},
		Ingest: IngestConfig{
			InboxDir:         getEnv("INBOX_DIR", ""),
			ProcessedDir:     getEnv("PROCESSED_DIR", "./data/processed"),
			Schedule:         getEnv("INGEST_SCHEDULE", "@every 5m"),
			DefaultBankName:  getEnv("DEFAULT_BANK_NAME", ""),
			DefaultAccountID: getEnv("DEFAULT_ACCOUNT_ID", ""),
			KnownBanks: getEnvAsSlice("KNOWN_BANKS", []string{
				"HDFC Bank", "ICICI Bank", "State Bank of India", "Axis Bank", "Kotak Mahindra Bank",
			}),
		},
		Categories: CategoriesConfig{
			RulesPath: getEnv("CATEGORY_RULES_PATH", ""),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("NOTIFY_FROM", ""),
			To:           getEnvAsSlice("NOTIFY_TO", nil),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			SummaryTTL: time.Duration(getEnvAsInt("SUMMARY_CACHE_TTL_SECONDS", 900)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Storage.Type {
	case "local", "gcs":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Storage.Type == "gcs" && c.Storage.GCSBucket == "" {
		return errors.New("STORAGE_GCS_BUCKET is required when STORAGE_TYPE=gcs")
	}

	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "changeme") {
		return errors.New("JWT_SECRET must be set when AUTH_ENABLED=true")
	}

	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
