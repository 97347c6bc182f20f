// Package config loads all application configuration from environment
// variables. Twelve-factor: no config files, defaults suit development,
// required secrets are validated at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Flexge partner API (source)
	Flexge FlexgeConfig

	// Notion API (target)
	Notion NotionConfig

	// Scheduler
	Scheduler SchedulerConfig

	// HTTP control surface
	HTTP HTTPConfig

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// FlexgeConfig holds Flexge partner API settings.
type FlexgeConfig struct {
	// Students endpoint base URL
	BaseURL string

	// API key sent as the x-api-key header
	APIKey string

	RequestTimeout time.Duration
}

// NotionConfig holds Notion API settings.
type NotionConfig struct {
	// Base URL (overridable for tests and proxies)
	BaseURL string

	// Integration token sent as a Bearer header
	Token string

	// Weekly report database ID
	DatabaseID string

	RequestTimeout time.Duration
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	// Enable/disable scheduler
	Enabled bool

	// Interval between roster sync runs
	SyncInterval time.Duration

	// Cron expression for the weekly reset (UTC). Default fires shortly
	// after the Monday 00:00 UTC week boundary.
	WeeklyResetCron string
}

// HTTPConfig holds control surface settings.
type HTTPConfig struct {
	Enabled bool
	Host    string
	Port    int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	RateLimitPerMinute int

	// API keys for the trigger endpoints; empty leaves them open.
	APIKeys []string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Flexge:        loadFlexgeConfig(),
		Notion:        loadNotionConfig(),
		Scheduler:     loadSchedulerConfig(),
		HTTP:          loadHTTPConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))

	return AppConfig{
		Name:            getEnv("APP_NAME", "flexge-notion-sync"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadFlexgeConfig() FlexgeConfig {
	return FlexgeConfig{
		BaseURL:        getEnv("FLEXGE_BASE_URL", "https://partner-api.flexge.com/external/students"),
		APIKey:         getEnv("FLEXGE_API_KEY", ""),
		RequestTimeout: getEnvDuration("FLEXGE_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func loadNotionConfig() NotionConfig {
	return NotionConfig{
		BaseURL:        getEnv("NOTION_BASE_URL", "https://api.notion.com/v1"),
		Token:          getEnv("NOTION_TOKEN", ""),
		DatabaseID:     getEnv("NOTION_DATABASE_ID", ""),
		RequestTimeout: getEnvDuration("NOTION_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:         getEnvBool("SCHEDULER_ENABLED", true),
		SyncInterval:    getEnvDuration("SCHEDULER_SYNC_INTERVAL", 10*time.Minute),
		WeeklyResetCron: getEnv("SCHEDULER_WEEKLY_RESET_CRON", "0 2 * * 1"),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Enabled:            getEnvBool("HTTP_ENABLED", true),
		Host:               getEnv("HTTP_HOST", "0.0.0.0"),
		Port:               getEnvInt("HTTP_PORT", 8080),
		ReadTimeout:        getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:        getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		RateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 60),
		APIKeys:            getEnvStringSlice("HTTP_API_KEYS", nil),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Flexge.APIKey == "" {
		errs = append(errs, "FLEXGE_API_KEY is required")
	}

	if c.Notion.Token == "" {
		errs = append(errs, "NOTION_TOKEN is required")
	}

	if c.Notion.DatabaseID == "" {
		errs = append(errs, "NOTION_DATABASE_ID is required")
	}

	if c.Scheduler.SyncInterval < time.Minute {
		errs = append(errs, "SCHEDULER_SYNC_INTERVAL must be at least 1m")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}

	if c.App.Environment == EnvProduction && len(c.HTTP.APIKeys) == 0 && c.HTTP.Enabled {
		errs = append(errs, "HTTP_API_KEYS is required in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		result = append(result, p)
	}
	return result
}
