package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the collection engine
type Config struct {
	// Engine-wide execution settings
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Per-platform quotas and credentials, keyed by platform identifier
	Platforms map[string]PlatformConfig `yaml:"platforms" json:"platforms"`

	// Proxy pool configuration
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Request pacing configuration
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// EngineConfig holds execution settings shared by every collection.
// Durations are configured as millisecond counts so they round-trip
// through YAML; the accessor methods convert them.
type EngineConfig struct {
	// MaxConcurrent bounds simultaneously running collection operations
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`
	// MaxRetries is the total attempt budget per request
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// RetryDelayMs is the base delay for exponential backoff between attempts
	RetryDelayMs int `yaml:"retry_delay_ms" json:"retry_delay_ms"`
	// RequestTimeoutMs bounds a single upstream call
	RequestTimeoutMs int `yaml:"request_timeout_ms" json:"request_timeout_ms"`
	// MaxRateLimitWaitMs caps how long the executor sleeps on a closed window
	MaxRateLimitWaitMs int `yaml:"max_rate_limit_wait_ms" json:"max_rate_limit_wait_ms"`
	// PageDelayMinMs/PageDelayMaxMs bound the randomized pause between pages
	PageDelayMinMs int `yaml:"page_delay_min_ms" json:"page_delay_min_ms"`
	PageDelayMaxMs int `yaml:"page_delay_max_ms" json:"page_delay_max_ms"`
}

func (c EngineConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c EngineConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c EngineConfig) MaxRateLimitWait() time.Duration {
	return time.Duration(c.MaxRateLimitWaitMs) * time.Millisecond
}

func (c EngineConfig) PageDelayMin() time.Duration {
	return time.Duration(c.PageDelayMinMs) * time.Millisecond
}

func (c EngineConfig) PageDelayMax() time.Duration {
	return time.Duration(c.PageDelayMaxMs) * time.Millisecond
}

// PlatformConfig holds one platform's quotas and account credentials
type PlatformConfig struct {
	RequestsPerHour         int    `yaml:"requests_per_hour" json:"requests_per_hour"`
	RequestsPerDay          int    `yaml:"requests_per_day" json:"requests_per_day"`
	CollectionIntervalHours int    `yaml:"collection_interval_hours" json:"collection_interval_hours"`
	SessionID               string `yaml:"session_id" json:"session_id"`
	CSRFToken               string `yaml:"csrf_token" json:"csrf_token"`
	AccessToken             string `yaml:"access_token" json:"access_token"`
	UserAgent               string `yaml:"user_agent" json:"user_agent"`
}

// ProxyConfig holds the proxy pool configuration
type ProxyConfig struct {
	Entries              []ProxyEntry `yaml:"entries" json:"entries"`
	HealthCheckURL       string       `yaml:"health_check_url" json:"health_check_url"`
	HealthCheckTimeoutMs int          `yaml:"health_check_timeout_ms" json:"health_check_timeout_ms"`
	// DefaultDailyLimit applies to entries that don't set their own
	DefaultDailyLimit int `yaml:"default_daily_limit" json:"default_daily_limit"`
}

func (c ProxyConfig) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthCheckTimeoutMs) * time.Millisecond
}

// ProxyEntry describes a single pool member
type ProxyEntry struct {
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	Protocol   string `yaml:"protocol" json:"protocol"`
	DailyLimit int    `yaml:"daily_limit" json:"daily_limit"`
}

// PacingConfig smooths request bursts below the window quotas
type PacingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrent:      10,
			MaxRetries:         3,
			RetryDelayMs:       1000,
			RequestTimeoutMs:   30000,
			MaxRateLimitWaitMs: 300000,
			PageDelayMinMs:     1000,
			PageDelayMaxMs:     3000,
		},
		Platforms: map[string]PlatformConfig{
			"instagram": {
				RequestsPerHour:         200,
				RequestsPerDay:          4000,
				CollectionIntervalHours: 24,
			},
			"youtube": {
				RequestsPerHour:         1000,
				RequestsPerDay:          50000,
				CollectionIntervalHours: 24,
			},
			"tiktok": {
				RequestsPerHour:         100,
				RequestsPerDay:          2000,
				CollectionIntervalHours: 24,
			},
			"twitter": {
				RequestsPerHour:         300,
				RequestsPerDay:          7200,
				CollectionIntervalHours: 24,
			},
		},
		Proxy: ProxyConfig{
			Entries:              nil,
			HealthCheckURL:       "https://httpbin.org/ip",
			HealthCheckTimeoutMs: 10000,
			DefaultDailyLimit:    1000,
		},
		Pacing: PacingConfig{
			RequestsPerSecond: 2.0,
			Burst:             1,
		},
		Storage: StorageConfig{
			Path: "./socialharvest.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "",
		},
	}
}

// Platform returns the configuration for a platform, falling back to the
// catch-all quota (100/hour, 1000/day, 24h interval) for unknown platforms.
func (c *Config) Platform(name string) PlatformConfig {
	if pc, ok := c.Platforms[strings.ToLower(name)]; ok {
		if pc.CollectionIntervalHours <= 0 {
			pc.CollectionIntervalHours = 24
		}
		return pc
	}
	return PlatformConfig{
		RequestsPerHour:         100,
		RequestsPerDay:          1000,
		CollectionIntervalHours: 24,
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Per-platform credentials
	for name, pc := range c.Platforms {
		prefix := "SOCIALHARVEST_" + strings.ToUpper(name)
		if sessionID := os.Getenv(prefix + "_SESSION_ID"); sessionID != "" {
			pc.SessionID = sessionID
		}
		if csrfToken := os.Getenv(prefix + "_CSRF_TOKEN"); csrfToken != "" {
			pc.CSRFToken = csrfToken
		}
		if accessToken := os.Getenv(prefix + "_ACCESS_TOKEN"); accessToken != "" {
			pc.AccessToken = accessToken
		}
		if userAgent := os.Getenv(prefix + "_USER_AGENT"); userAgent != "" {
			pc.UserAgent = userAgent
		}
		c.Platforms[name] = pc
	}

	// Engine settings
	if maxConcurrent := os.Getenv("SOCIALHARVEST_MAX_CONCURRENT"); maxConcurrent != "" {
		var val int
		fmt.Sscanf(maxConcurrent, "%d", &val)
		if val > 0 {
			c.Engine.MaxConcurrent = val
		}
	}
	if maxRetries := os.Getenv("SOCIALHARVEST_MAX_RETRIES"); maxRetries != "" {
		var val int
		fmt.Sscanf(maxRetries, "%d", &val)
		if val > 0 {
			c.Engine.MaxRetries = val
		}
	}

	// Proxy health check
	if checkURL := os.Getenv("SOCIALHARVEST_HEALTH_CHECK_URL"); checkURL != "" {
		c.Proxy.HealthCheckURL = checkURL
	}

	// Storage path
	if storagePath := os.Getenv("SOCIALHARVEST_STORAGE_PATH"); storagePath != "" {
		c.Storage.Path = storagePath
	}

	// Logging level
	if logLevel := os.Getenv("SOCIALHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("SOCIALHARVEST_LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		"socialharvest.yaml",
		".socialharvest.yaml",
		".socialharvest.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "socialharvest", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "socialharvest", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".socialharvest.yaml"),
		filepath.Join(os.Getenv("HOME"), ".socialharvest.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate engine settings
	if c.Engine.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("max concurrent must be positive"))
	}
	if c.Engine.MaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be positive"))
	}
	if c.Engine.RequestTimeoutMs <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Engine.MaxRateLimitWaitMs <= 0 {
		errs = append(errs, errors.New("max rate limit wait must be positive"))
	}
	if c.Engine.PageDelayMinMs <= 0 || c.Engine.PageDelayMaxMs <= 0 {
		errs = append(errs, errors.New("page delays must be positive"))
	}
	if c.Engine.PageDelayMinMs > c.Engine.PageDelayMaxMs {
		errs = append(errs, errors.New("page delay min cannot exceed max"))
	}

	// Validate platform quotas
	for name, pc := range c.Platforms {
		if pc.RequestsPerHour <= 0 {
			errs = append(errs, fmt.Errorf("platform %s: requests per hour must be positive", name))
		}
		if pc.RequestsPerDay <= 0 {
			errs = append(errs, fmt.Errorf("platform %s: requests per day must be positive", name))
		}
		if pc.RequestsPerHour > pc.RequestsPerDay {
			errs = append(errs, fmt.Errorf("platform %s: hourly quota cannot exceed daily quota", name))
		}
		if pc.CollectionIntervalHours < 0 {
			errs = append(errs, fmt.Errorf("platform %s: collection interval cannot be negative", name))
		}
	}

	// Validate proxy entries
	validProtocols := map[string]bool{
		"": true, "http": true, "https": true, "socks5": true,
	}
	for i, entry := range c.Proxy.Entries {
		if entry.Host == "" {
			errs = append(errs, fmt.Errorf("proxy entry %d: host is required", i))
		}
		if entry.Port <= 0 || entry.Port > 65535 {
			errs = append(errs, fmt.Errorf("proxy entry %d: invalid port %d", i, entry.Port))
		}
		if !validProtocols[strings.ToLower(entry.Protocol)] {
			errs = append(errs, fmt.Errorf("proxy entry %d: invalid protocol %q", i, entry.Protocol))
		}
	}
	if c.Proxy.HealthCheckTimeoutMs <= 0 {
		errs = append(errs, errors.New("health check timeout must be positive"))
	}

	// Validate pacing
	if c.Pacing.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("pacing requests per second must be positive"))
	}

	// Validate storage
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage path is required"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validLogFormats := map[string]bool{
		"": true, "console": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if maxConcurrent, ok := flags["max-concurrent"].(int); ok && maxConcurrent > 0 {
		c.Engine.MaxConcurrent = maxConcurrent
	}
	if storagePath, ok := flags["storage"].(string); ok && storagePath != "" {
		c.Storage.Path = storagePath
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat, ok := flags["log-format"].(string); ok && logFormat != "" {
		c.Logging.Format = logFormat
	}
	if checkURL, ok := flags["health-check-url"].(string); ok && checkURL != "" {
		c.Proxy.HealthCheckURL = checkURL
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialharvest.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
