package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ModeRetrying streams each image with a bounded retry policy.
	ModeRetrying = "retrying"
	// ModeSingle makes one best-effort request per image and requires HTTP 200.
	ModeSingle = "single"

	// DefaultUserAgent identifies API and image requests.
	DefaultUserAgent = "pexelscraper/1.0"
)

// ErrMissingAPIKey is returned when no Pexels API key was configured.
var ErrMissingAPIKey = errors.New("Pexels API key is required: set PEXELS_API_KEY, pexels.api_key in the config file, or run 'pexelscraper auth login'")

// Resolutions lists the keys the Pexels API uses in a photo's src object.
var Resolutions = []string{"original", "large2x", "large", "medium", "small", "portrait", "landscape", "tiny"}

// Config holds all configuration options for the Pexels scraper
type Config struct {
	// Pexels API access
	Pexels PexelsConfig `yaml:"pexels" json:"pexels"`

	// What to search for
	Search SearchConfig `yaml:"search" json:"search"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Metrics output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PexelsConfig holds Pexels API configuration
type PexelsConfig struct {
	APIKey     string        `yaml:"api_key" json:"api_key" env:"PEXELS_API_KEY"`
	BaseURL    string        `yaml:"base_url" json:"base_url" env:"PEXELSCRAPER_BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" env:"PEXELSCRAPER_API_TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries" env:"PEXELSCRAPER_API_MAX_RETRIES"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent" env:"PEXELSCRAPER_USER_AGENT"`
}

// SearchConfig holds the search query parameters
type SearchConfig struct {
	Query      string `yaml:"query" json:"query" env:"PEXELSCRAPER_QUERY"`
	NumImages  int    `yaml:"num_images" json:"num_images" env:"PEXELSCRAPER_NUM_IMAGES"`
	Resolution string `yaml:"resolution" json:"resolution" env:"PEXELSCRAPER_RESOLUTION"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory" env:"PEXELSCRAPER_OUTPUT_DIR"`
	SaveMetadata  bool   `yaml:"save_metadata" json:"save_metadata" env:"PEXELSCRAPER_SAVE_METADATA"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Mode              string        `yaml:"mode" json:"mode" env:"PEXELSCRAPER_DOWNLOAD_MODE"`
	MaxAttempts       int           `yaml:"max_attempts" json:"max_attempts" env:"PEXELSCRAPER_MAX_ATTEMPTS"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay" env:"PEXELSCRAPER_RETRY_DELAY"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier" env:"PEXELSCRAPER_BACKOFF_MULTIPLIER"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" env:"PEXELSCRAPER_DOWNLOAD_TIMEOUT"`
	ChunkSize         int           `yaml:"chunk_size" json:"chunk_size" env:"PEXELSCRAPER_CHUNK_SIZE"`
	EmbedCredits      bool          `yaml:"embed_credits" json:"embed_credits" env:"PEXELSCRAPER_EMBED_CREDITS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PageDelay       time.Duration `yaml:"page_delay" json:"page_delay" env:"PEXELSCRAPER_PAGE_DELAY"`
	RequestsPerHour int           `yaml:"requests_per_hour" json:"requests_per_hour" env:"PEXELSCRAPER_REQUESTS_PER_HOUR"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"PEXELSCRAPER_NOTIFICATIONS_ENABLED"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile" env:"PEXELSCRAPER_METRICS_TEXTFILE"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" env:"PEXELSCRAPER_LOG_LEVEL"`
	File  string `yaml:"file" json:"file" env:"PEXELSCRAPER_LOG_FILE"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pexels: PexelsConfig{
			BaseURL:    "https://api.pexels.com/v1",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  DefaultUserAgent,
		},
		Search: SearchConfig{
			Query:      "face",
			NumImages:  1000,
			Resolution: "original",
		},
		Output: OutputConfig{
			BaseDirectory: "~/Downloads",
		},
		Download: DownloadConfig{
			Mode:              ModeRetrying,
			MaxAttempts:       3,
			RetryDelay:        2 * time.Second,
			BackoffMultiplier: 1,
			Timeout:           30 * time.Second,
			ChunkSize:         8192,
		},
		RateLimit: RateLimitConfig{
			PageDelay:       time.Second,
			RequestsPerHour: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. A sibling
// "<name>.local.yaml" is decoded over it when present, so any key it sets
// wins, including false and zero values.
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

	localPath := localFileName(path)
	localData, err := os.ReadFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read local config file: %w", err)
	}

	if err := yaml.Unmarshal(localData, c); err != nil {
		return fmt.Errorf("failed to parse local config file: %w", err)
	}

	return nil
}

// localFileName turns "dir/name.yaml" into "dir/name.local.yaml".
func localFileName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()

	// Check in order of precedence
	locations := []string{
		"pexelscraper.yaml",
		".pexelscraper.yaml",
		".pexelscraper.yml",
		filepath.Join(home, ".pexelscraper.yaml"),
		filepath.Join(home, ".config", "pexelscraper", "config.yaml"),
		filepath.Join(home, ".config", "pexelscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The API key is checked
// separately by RequireAPIKey.
func (c *Config) Validate() error {
	var errs []error

	// Search
	if strings.TrimSpace(c.Search.Query) == "" {
		errs = append(errs, errors.New("search query is required"))
	}
	if c.Search.NumImages < 1 {
		errs = append(errs, errors.New("number of images must be at least 1"))
	}
	if !IsValidResolution(c.Search.Resolution) {
		errs = append(errs, fmt.Errorf("invalid resolution %q (valid: %s)", c.Search.Resolution, strings.Join(Resolutions, ", ")))
	}

	// Pexels API
	if c.Pexels.BaseURL == "" {
		errs = append(errs, errors.New("Pexels base URL is required"))
	}
	if c.Pexels.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}
	if c.Pexels.MaxRetries < 0 {
		errs = append(errs, errors.New("API max retries cannot be negative"))
	}

	// Download settings
	switch c.Download.Mode {
	case ModeRetrying, ModeSingle:
	default:
		errs = append(errs, fmt.Errorf("invalid download mode %q (valid: %s, %s)", c.Download.Mode, ModeRetrying, ModeSingle))
	}
	if c.Download.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}

	// Rate limiting
	if c.RateLimit.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}
	if c.RateLimit.RequestsPerHour < 0 {
		errs = append(errs, errors.New("requests per hour cannot be negative"))
	}

	// Output settings
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireAPIKey fails when no API key has been configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Pexels.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// IsValidResolution reports whether name is a known Pexels src key.
func IsValidResolution(name string) bool {
	for _, r := range Resolutions {
		if r == name {
			return true
		}
	}
	return false
}

// OutputDir returns the directory images for the configured query are saved
// to: the base directory joined with the query, spaces replaced by underscores.
func (c *Config) OutputDir() (string, error) {
	base, err := expandHome(c.Output.BaseDirectory)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, strings.ReplaceAll(c.Search.Query, " ", "_")), nil
}

// CreditsFileName returns the name of the photographer credits CSV.
func (c *Config) CreditsFileName() string {
	return c.Search.Query + "_photographers.csv"
}

// MetadataFileName returns the name of the JSON metadata manifest.
func (c *Config) MetadataFileName() string {
	return c.Search.Query + "_metadata.json"
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
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

// Override adjusts a loaded configuration. Command line flags are applied
// as overrides after the file and environment, so a flag set to false or 0
// replaces whatever those sources said.
type Override func(*Config)

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Local config file > Config file > Defaults
func Load(configPath string, overrides ...Override) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	home, _ := os.UserHomeDir()
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(home, ".env"))
	_ = godotenv.Load(filepath.Join(home, ".pexelscraper.env"))

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
	for _, override := range overrides {
		override(config)
	}

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
