package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port    string
	LogMode string // development, production

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string // file path for sqlite
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	DBLogLevel        string // silent, error, warn, info

	// Authorizer configuration, optional
	AuthzURL      string
	AuthzClientID string

	// Change events, optional
	RedisAddr    string
	RedisChannel string

	// Search paging cap
	SearchMaxTake int
}

// Load loads configuration from environment variables. When envFile is set, or
// ENV_FILE names a file, that file is loaded first without overriding
// variables already present in the environment.
func Load(envFile ...string) (*Config, error) {
	files := make([]string, 0, 1)
	for _, f := range envFile {
		if f != "" {
			files = append(files, f)
		}
	}
	if f := os.Getenv("ENV_FILE"); f != "" && len(files) == 0 {
		files = append(files, f)
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		LogMode:           getEnv("LOG_MODE", "development"),
		DBType:            strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", ""),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		DBLogLevel:        strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),
		AuthzURL:          getEnv("AUTHZ_URL", ""),
		AuthzClientID:     getEnv("AUTHZ_CLIENT_ID", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisChannel:      getEnv("REDIS_CHANNEL", "nodedb.events"),
		SearchMaxTake:     getEnvAsInt("SEARCH_MAX_TAKE", 100),
	}

	if cfg.DBPort == "" {
		cfg.DBPort = defaultPort(cfg.DBType)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and combinations
func (cfg *Config) Validate() error {
	if cfg.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBUser == "" {
		return fmt.Errorf("DB_USER is required for %s", cfg.DBType)
	}
	if (cfg.AuthzURL == "") != (cfg.AuthzClientID == "") {
		return fmt.Errorf("AUTHZ_URL and AUTHZ_CLIENT_ID must be set together")
	}
	if cfg.DBConnectionLimit < 1 {
		return fmt.Errorf("DB_CONNECTION_LIMIT must be positive")
	}
	if cfg.SearchMaxTake < 1 {
		return fmt.Errorf("SEARCH_MAX_TAKE must be positive")
	}
	return nil
}

// AuthEnabled reports whether mutations require an Authorizer session
func (cfg *Config) AuthEnabled() bool {
	return cfg.AuthzURL != ""
}

// defaultPort returns the conventional port for a database type
func defaultPort(dbType string) string {
	switch dbType {
	case "mysql", "mariadb":
		return "3306"
	case "postgres", "postgresql":
		return "5432"
	case "sqlserver", "mssql":
		return "1433"
	}
	return ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}
