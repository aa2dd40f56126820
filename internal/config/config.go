package config

import (
	"os"
	"strconv"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Paths    PathConfig
	Convert  ConvertConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds the optional run-ledger database settings.
// Conversion works without a database; the ledger is only wired when
// DATABASE_URL is set.
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// PathConfig holds file system paths
type PathConfig struct {
	TemplateDir       string
	GlobalTemplateDir string
	AliasFile         string
	OutputDir         string
}

// ConvertConfig holds conversion defaults
type ConvertConfig struct {
	DuplicatePolicy string
	StrictLevels    bool
	MaxUploadMB     int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Paths:    loadPathConfig(),
		Convert:  loadConvertConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	url := os.Getenv("DATABASE_URL")
	return DatabaseConfig{
		URL:     url,
		Enabled: url != "",
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		TemplateDir:       getEnvOrDefault("TEMPLATE_DIR", "./library"),
		GlobalTemplateDir: getEnvOrDefault("GLOBAL_TEMPLATE_DIR", ""),
		AliasFile:         getEnvOrDefault("ALIAS_FILE", ""),
		OutputDir:         getEnvOrDefault("OUTPUT_DIR", "./out"),
	}
}

func loadConvertConfig() ConvertConfig {
	return ConvertConfig{
		DuplicatePolicy: getEnvOrDefault("DUPLICATE_POLICY", "error"),
		StrictLevels:    getEnvBoolOrDefault("STRICT_LEVELS", false),
		MaxUploadMB:     getEnvIntOrDefault("MAX_UPLOAD_MB", 64),
	}
}

func validateConfig(config *Config) error {
	if config.Paths.TemplateDir == "" {
		return errors.ConfigInvalid("template directory is required")
	}
	if config.Paths.OutputDir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	switch config.Convert.DuplicatePolicy {
	case "error", "keep_first", "keep_last", "sessions":
	default:
		return errors.ConfigInvalid("DUPLICATE_POLICY must be one of error, keep_first, keep_last, sessions")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
