package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PROFILESYNC_"

// Config holds all configuration options for profilesync
type Config struct {
	// Profile site access
	Site SiteConfig `yaml:"site" json:"site"`

	// Remote table location and worksheet names
	Table TableConfig `yaml:"table" json:"table"`

	// Batching and queue behaviour
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Quota governor
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Tag display names
	Tags TagsConfig `yaml:"tags" json:"tags"`

	// Changed-cell highlight colour
	Highlight HighlightConfig `yaml:"highlight" json:"highlight"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SiteConfig describes the profile site and how to read its pages
type SiteConfig struct {
	BaseURL        string            `yaml:"base_url" json:"base_url"`
	LoginPath      string            `yaml:"login_path" json:"login_path"`
	ProfilePath    string            `yaml:"profile_path" json:"profile_path"`
	Username       string            `yaml:"username" json:"username"`
	Password       string            `yaml:"-" json:"-"`
	UserAgent      string            `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration     `yaml:"request_timeout" json:"request_timeout"`
	ScrapeDelay    time.Duration     `yaml:"scrape_delay" json:"scrape_delay"`
	Selectors      map[string]string `yaml:"selectors" json:"selectors"`
}

// TableConfig selects the table backend and worksheet names
type TableConfig struct {
	Backend         string `yaml:"backend" json:"backend"`
	SpreadsheetID   string `yaml:"spreadsheet_id" json:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	SQLitePath      string `yaml:"sqlite_path" json:"sqlite_path"`
	ProfilesSheet   string `yaml:"profiles_sheet" json:"profiles_sheet"`
	QueueSheet      string `yaml:"queue_sheet" json:"queue_sheet"`
	TagsSheet       string `yaml:"tags_sheet" json:"tags_sheet"`
}

// SyncConfig controls batching
type SyncConfig struct {
	BatchSize         int           `yaml:"batch_size" json:"batch_size"`
	InterBatchDelay   time.Duration `yaml:"inter_batch_delay" json:"inter_batch_delay"`
	CommitRetryPass   bool          `yaml:"commit_retry_pass" json:"commit_retry_pass"`
	CheckpointEnabled bool          `yaml:"checkpoint_enabled" json:"checkpoint_enabled"`
	Notify            bool          `yaml:"notify" json:"notify"`
}

// RateLimitConfig holds the remote quota policy
type RateLimitConfig struct {
	MaxCallsPerWindow int           `yaml:"max_calls_per_window" json:"max_calls_per_window"`
	Window            time.Duration `yaml:"window" json:"window"`
	InterCallDelay    time.Duration `yaml:"inter_call_delay" json:"inter_call_delay"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	ThrottleBackoff   time.Duration `yaml:"throttle_backoff" json:"throttle_backoff"`
	BackoffStrategy   string        `yaml:"backoff_strategy" json:"backoff_strategy"`
	MaxBackoff        time.Duration `yaml:"max_backoff" json:"max_backoff"`
}

// TagsConfig maps tag worksheet headers to display labels
type TagsConfig struct {
	DisplayNames  map[string]string `yaml:"display_names" json:"display_names"`
	DefaultPrefix string            `yaml:"default_prefix" json:"default_prefix"`
}

// HighlightConfig is the background colour applied to changed cells
type HighlightConfig struct {
	Red   float64 `yaml:"red" json:"red"`
	Green float64 `yaml:"green" json:"green"`
	Blue  float64 `yaml:"blue" json:"blue"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// MetricsConfig holds the observability server address; empty disables it
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			LoginPath:      "/login",
			ProfilePath:    "/profile/%s",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
			ScrapeDelay:    2 * time.Second,
			Selectors:      DefaultSelectors(),
		},
		Table: TableConfig{
			Backend:       "sheets",
			SQLitePath:    "profilesync.db",
			ProfilesSheet: "Profiles",
			QueueSheet:    "Target",
			TagsSheet:     "Tags",
		},
		Sync: SyncConfig{
			BatchSize:         3,
			InterBatchDelay:   10 * time.Second,
			CommitRetryPass:   true,
			CheckpointEnabled: true,
		},
		RateLimit: RateLimitConfig{
			MaxCallsPerWindow: 50,
			Window:            time.Minute,
			InterCallDelay:    1200 * time.Millisecond,
			MaxRetries:        3,
			ThrottleBackoff:   65 * time.Second,
			BackoffStrategy:   "fixed",
			MaxBackoff:        5 * time.Minute,
		},
		Tags: TagsConfig{
			DisplayNames: map[string]string{
				"Following": "🔗 Following",
				"Followers": "⭐ Followers",
				"Bookmark":  "📖 Bookmark",
				"Pending":   "⏳ Pending",
			},
			DefaultPrefix: "🔌 ",
		},
		Highlight: HighlightConfig{Red: 1.0, Green: 0.9, Blue: 0.6},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// DefaultSelectors returns the CSS selectors used for profile pages
func DefaultSelectors() map[string]string {
	return map[string]string{
		"profile":        "h1",
		"login_form":     "input[type='password']",
		"city":           ".profile-city",
		"gender":         ".profile-gender",
		"married":        ".profile-married",
		"age":            ".profile-age",
		"joined":         ".profile-joined",
		"followers":      ".profile-followers",
		"posts":          ".profile-posts",
		"last_post":      ".profile-last-post",
		"last_post_time": ".profile-last-post-time",
		"image":          "img.profile-image",
		"bio":            ".profile-intro",
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(envPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	// Site
	setString("SITE_URL", &c.Site.BaseURL)
	setString("SITE_USERNAME", &c.Site.Username)
	setString("SITE_PASSWORD", &c.Site.Password)
	setString("USER_AGENT", &c.Site.UserAgent)
	setDuration("SCRAPE_DELAY", &c.Site.ScrapeDelay)

	// Table
	setString("TABLE_BACKEND", &c.Table.Backend)
	setString("SPREADSHEET_ID", &c.Table.SpreadsheetID)
	setString("CREDENTIALS_FILE", &c.Table.CredentialsFile)
	setString("SQLITE_PATH", &c.Table.SQLitePath)

	// Sync
	setInt("BATCH_SIZE", &c.Sync.BatchSize)
	setDuration("INTER_BATCH_DELAY", &c.Sync.InterBatchDelay)

	// Rate limiting
	setInt("MAX_CALLS_PER_WINDOW", &c.RateLimit.MaxCallsPerWindow)
	setDuration("RATE_WINDOW", &c.RateLimit.Window)
	setDuration("INTER_CALL_DELAY", &c.RateLimit.InterCallDelay)
	setInt("MAX_RETRIES", &c.RateLimit.MaxRetries)
	setDuration("THROTTLE_BACKOFF", &c.RateLimit.ThrottleBackoff)

	// Logging and metrics
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)
	setString("METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
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
	home := os.Getenv("HOME")
	locations := []string{
		".profilesync.yaml",
		".profilesync.yml",
		filepath.Join(home, ".config", "profilesync", "config.yaml"),
		filepath.Join(home, ".config", "profilesync", "config.yml"),
		filepath.Join(home, ".profilesync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes the file
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "profilesync", "config.yaml")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "profilesync", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Table
	switch strings.ToLower(c.Table.Backend) {
	case "sheets":
		if c.Table.SpreadsheetID == "" {
			errs = append(errs, errors.New("spreadsheet id is required for the sheets backend"))
		}
	case "sqlite":
		if c.Table.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown table backend %q", c.Table.Backend))
	}
	if c.Table.ProfilesSheet == "" || c.Table.QueueSheet == "" {
		errs = append(errs, errors.New("profiles and queue worksheet names are required"))
	}

	// Sync
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Sync.InterBatchDelay < 0 {
		errs = append(errs, errors.New("inter-batch delay cannot be negative"))
	}

	// Rate limiting
	if c.RateLimit.MaxCallsPerWindow <= 0 {
		errs = append(errs, errors.New("max calls per window must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate window must be positive"))
	}
	if c.RateLimit.InterCallDelay < 0 {
		errs = append(errs, errors.New("inter-call delay cannot be negative"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	switch strings.ToLower(c.RateLimit.BackoffStrategy) {
	case "fixed", "linear", "exponential":
	default:
		errs = append(errs, fmt.Errorf("unknown backoff strategy %q", c.RateLimit.BackoffStrategy))
	}

	// Highlight
	for _, v := range []float64{c.Highlight.Red, c.Highlight.Green, c.Highlight.Blue} {
		if v < 0 || v > 1 {
			errs = append(errs, errors.New("highlight colour components must be within [0,1]"))
			break
		}
	}

	// Logging
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
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Table.Backend = backend
	}
	if id, ok := flags["spreadsheet"].(string); ok && id != "" {
		c.Table.SpreadsheetID = id
	}
	if path, ok := flags["db"].(string); ok && path != "" {
		c.Table.SQLitePath = path
	}
	if size, ok := flags["batch-size"].(int); ok && size > 0 {
		c.Sync.BatchSize = size
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Addr = addr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".profilesync.env"))

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
