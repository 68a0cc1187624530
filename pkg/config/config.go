package config

import (
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Import        ImportConfig
	Observability ObservabilityConfig
	Alerts        AlertsConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	// Backend selects the persistence layer: "postgres" or "memory".
	Backend  string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ImportConfig tunes the spreadsheet import pipeline.
type ImportConfig struct {
	// BatchSize is the number of records committed per store write.
	BatchSize int
	// DefaultRegister is assigned when a register cell names neither
	// terminal unambiguously. The importer surfaces a warning when it
	// falls back to this value.
	DefaultRegister string
	// UploadDir is where raw uploaded spreadsheets are archived.
	UploadDir string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// AlertsConfig configures low-stock email notifications. Email sending is
// disabled when the API key is empty.
type AlertsConfig struct {
	ResendAPIKey string
	FromAddress  string
	ToAddress    string
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
		},
		Database: DatabaseConfig{
			Backend:  getEnv("STORE_BACKEND", "postgres"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "backoffice-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Import: ImportConfig{
			BatchSize:       getEnvAsInt("IMPORT_BATCH_SIZE", 200),
			DefaultRegister: getEnv("IMPORT_DEFAULT_REGISTER", "Register1"),
			UploadDir:       getEnv("IMPORT_UPLOAD_DIR", "./uploads"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Alerts: AlertsConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("ALERTS_FROM_ADDRESS", ""),
			ToAddress:    getEnv("ALERTS_TO_ADDRESS", ""),
		},
	}

	if cfg.Import.BatchSize <= 0 {
		return nil, fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", cfg.Import.BatchSize)
	}
	if cfg.Database.Backend != "postgres" && cfg.Database.Backend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", cfg.Database.Backend)
	}

	return cfg, nil
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
