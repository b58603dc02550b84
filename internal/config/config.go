package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
)

// Config represents the main application configuration
type Config struct {
	// Metadata provider
	TMDb TMDbConfig `yaml:"tmdb"`

	// Catalog loading
	Catalog CatalogConfig `yaml:"catalog"`

	// Favorites persistence
	Storage StorageConfig `yaml:"storage"`

	// JSON API server
	Server ServerConfig `yaml:"server"`

	// Frontends
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`

	// Application settings
	App AppConfig `yaml:"app"`
}

// TMDbConfig holds TMDb API configuration
type TMDbConfig struct {
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	Language string        `yaml:"language,omitempty"` // BCP 47 tag, e.g. "pt-BR"
	Timeout  time.Duration `yaml:"timeout,omitempty"`  // 0 = transport defaults

	VideoCacheTTL time.Duration `yaml:"video_cache_ttl,omitempty"` // 0 = no caching
}

// CatalogConfig holds catalog loader settings
type CatalogConfig struct {
	TrailerWorkers int `yaml:"trailer_workers,omitempty"` // 0 = one lookup per movie at once
}

// StorageConfig holds durable storage settings
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty"` // "file" or "sqlite"
	Path    string `yaml:"path,omitempty"`    // defaults inside app.data_dir
}

// ServerConfig holds JSON API server settings
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	RateLimit      float64  `yaml:"rate_limit,omitempty"` // requests per second per client IP
	RateBurst      int      `yaml:"rate_burst,omitempty"`
	// TrustProxyHeaders keys rate limiting by X-Forwarded-For/X-Real-IP.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers,omitempty"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids,omitempty"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel string `yaml:"log_level"`          // "debug", "info", "warn", "error"
	LogFile  string `yaml:"log_file,omitempty"` // rotated log file; empty = stderr
	DataDir  string `yaml:"data_dir"`           // Directory for storage and logs
}

// Defaults.
const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultLanguage  = "pt-BR"
	DefaultPort      = 8080
	DefaultRateLimit = 10
	DefaultRateBurst = 20
)

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides overrides config values with environment variables
func (c *Config) applyEnvOverrides() error {
	// TMDb
	if v := os.Getenv("MARQUEE_TMDB_API_KEY"); v != "" {
		c.TMDb.APIKey = v
	}
	if v := os.Getenv("MARQUEE_TMDB_BASE_URL"); v != "" {
		c.TMDb.BaseURL = v
	}
	if v := os.Getenv("MARQUEE_TMDB_LANGUAGE"); v != "" {
		c.TMDb.Language = v
	}

	// Storage
	if v := os.Getenv("MARQUEE_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("MARQUEE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	// Server
	if v := os.Getenv("MARQUEE_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MARQUEE_SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}

	// Telegram
	if v := os.Getenv("MARQUEE_TELEGRAM_BOT_TOKEN"); v != "" {
		if c.Telegram == nil {
			c.Telegram = &TelegramConfig{}
		}
		c.Telegram.BotToken = v
	}

	// App
	if v := os.Getenv("MARQUEE_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv("MARQUEE_LOG_FILE"); v != "" {
		c.App.LogFile = v
	}
	if v := os.Getenv("MARQUEE_DATA_DIR"); v != "" {
		c.App.DataDir = v
	}
	return nil
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	// TMDb
	if c.TMDb.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required")
	}
	if c.TMDb.BaseURL == "" {
		c.TMDb.BaseURL = DefaultBaseURL
	}
	if u, err := url.Parse(c.TMDb.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tmdb.base_url must be an absolute URL")
	}
	if c.TMDb.Language == "" {
		c.TMDb.Language = DefaultLanguage
	}
	tag, err := language.Parse(c.TMDb.Language)
	if err != nil {
		return fmt.Errorf("tmdb.language %q is not a valid language tag: %w", c.TMDb.Language, err)
	}
	c.TMDb.Language = tag.String()
	if c.TMDb.Timeout < 0 {
		return fmt.Errorf("tmdb.timeout must not be negative")
	}
	if c.TMDb.VideoCacheTTL < 0 {
		return fmt.Errorf("tmdb.video_cache_ttl must not be negative")
	}

	// Catalog
	if c.Catalog.TrailerWorkers < 0 {
		return fmt.Errorf("catalog.trailer_workers must not be negative")
	}

	// Storage
	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "file"
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be 'file' or 'sqlite'")
	}

	// Server
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = DefaultRateBurst
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}

	// Telegram
	if c.Telegram != nil && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is configured")
	}

	// App
	switch strings.ToLower(c.App.LogLevel) {
	case "":
		c.App.LogLevel = "info"
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug, info, warn, error")
	}
	if c.App.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		c.App.DataDir = filepath.Join(homeDir, ".marquee")
	}

	return nil
}

// validateConfigPath checks that path names a readable regular file.
func validateConfigPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path is a directory: %s", path)
	}
	return nil
}
