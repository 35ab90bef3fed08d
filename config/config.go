// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the app runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long forms of each environment name
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Store backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes
	RequireProxy      bool  // Reject requests that did not come through the reverse proxy

	StoreBackend     string
	SQLitePath       string
	CatalogSource    string // CSV path or http(s) URL
	CatalogRefreshAt []string
	StoreTimeout     time.Duration
	ScoringWorkers   int
	DedupPolicy      string

	RateLimitRate     int64 // tokens refilled per second
	RateLimitCapacity int64
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default
		RequireProxy:      getBoolEnvWithDefault("REQUIRE_PROXY", false),

		StoreBackend:     strings.ToLower(getEnvWithDefault("STORE_BACKEND", BackendMemory)),
		SQLitePath:       getEnvWithDefault("SQLITE_PATH", "pharmatrack.db"),
		CatalogSource:    os.Getenv("CATALOG_SOURCE"),
		CatalogRefreshAt: splitList(getEnvWithDefault("CATALOG_REFRESH_AT", "06:00;18:00")),
		StoreTimeout:     getDurationEnvWithDefault("STORE_TIMEOUT", 5*time.Second),
		ScoringWorkers:   getIntEnvWithDefault("SCORING_WORKERS", runtime.NumCPU()),
		DedupPolicy:      strings.ToLower(getEnvWithDefault("DEDUP_POLICY", "first_seen")),

		RateLimitRate:     getInt64EnvWithDefault("RATE_LIMIT_RATE", 3),
		RateLimitCapacity: getInt64EnvWithDefault("RATE_LIMIT_CAPACITY", 1000),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	// Validate PORT
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	// Validate ADDRESS
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	// Validate LOG_LEVEL
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	// Validate MAX_REQUEST_BODY
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	// Validate MAX_HEADER_SIZE
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	// Validate LOG_RETENTION_WEEKS
	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	// Validate MAX_LOG_FILE_SIZE
	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	// Validate STORE_BACKEND and its source
	if err := validateStore(cfg); err != nil {
		return fmt.Errorf("invalid STORE_BACKEND: %w", err)
	}

	// Validate CATALOG_REFRESH_AT
	if err := validateRefreshTimes(cfg.CatalogRefreshAt); err != nil {
		return fmt.Errorf("invalid CATALOG_REFRESH_AT: %w", err)
	}

	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("invalid STORE_TIMEOUT: must be positive, got: %s", cfg.StoreTimeout)
	}

	if cfg.ScoringWorkers < 1 || cfg.ScoringWorkers > 1024 {
		return fmt.Errorf("invalid SCORING_WORKERS: must be between 1 and 1024, got: %d", cfg.ScoringWorkers)
	}

	if cfg.DedupPolicy != "first_seen" && cfg.DedupPolicy != "highest_score" {
		return fmt.Errorf("invalid DEDUP_POLICY: must be first_seen or highest_score, got: %s", cfg.DedupPolicy)
	}

	if cfg.RateLimitRate <= 0 || cfg.RateLimitCapacity <= 0 {
		return fmt.Errorf("invalid rate limit: RATE_LIMIT_RATE and RATE_LIMIT_CAPACITY must be positive")
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Only loopback, unspecified and private ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateStore checks the backend name and that the backend has something to load
func validateStore(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendMemory:
		// The memory backend starts empty, it needs a source to load on boot
		if cfg.CatalogSource == "" {
			return fmt.Errorf("CATALOG_SOURCE is required with the %s backend", BackendMemory)
		}
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty with the %s backend", BackendSQLite)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s, got: %s", BackendMemory, BackendSQLite, cfg.StoreBackend)
	}
	return nil
}

// validateRefreshTimes validates a list of HH:MM times
func validateRefreshTimes(times []string) error {
	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("%q is not a HH:MM time", t)
		}
	}
	return nil
}

// splitList splits a semicolon separated list, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"REQUIRE_PROXY",
		"STORE_BACKEND",
		"SQLITE_PATH",
		"CATALOG_SOURCE",
		"CATALOG_REFRESH_AT",
		"STORE_TIMEOUT",
		"SCORING_WORKERS",
		"DEDUP_POLICY",
		"RATE_LIMIT_RATE",
		"RATE_LIMIT_CAPACITY",
	}
}
