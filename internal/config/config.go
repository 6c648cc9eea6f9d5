package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Site       SiteConfig       `mapstructure:"site"`
	Library    LibraryConfig    `mapstructure:"library"`
	Matcher    MatcherConfig    `mapstructure:"matcher"`
	Linker     LinkerConfig     `mapstructure:"linker"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
	Images     ImagesConfig     `mapstructure:"images"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	API        APIConfig        `mapstructure:"api"`
}

// SiteConfig holds crawl target settings
type SiteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	SitemapPath    string `mapstructure:"sitemap_path"`
	SessionCookie  string `mapstructure:"session_cookie"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RetryAttempts  int    `mapstructure:"retry_attempts"`
}

// LibraryConfig holds media directory settings
type LibraryConfig struct {
	SourceDir    string   `mapstructure:"source_dir"`
	OrganizeRoot string   `mapstructure:"organize_root"`
	Recursive    bool     `mapstructure:"recursive"`
	Extensions   []string `mapstructure:"extensions"`
}

// MatcherConfig holds fuzzy matcher settings
type MatcherConfig struct {
	MinOverlap   float64 `mapstructure:"min_overlap"`
	MinKeyLength int     `mapstructure:"min_key_length"`
}

// LinkerConfig holds link farm builder settings
type LinkerConfig struct {
	MaxRenameAttempts int  `mapstructure:"max_rename_attempts"`
	HardLinkFallback  bool `mapstructure:"hard_link_fallback"`
}

// FilterConfig holds category filter settings
type FilterConfig struct {
	IncludePatterns []string `mapstructure:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// DatabaseConfig holds catalog store settings
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path     string `mapstructure:"path"`   // sqlite file path
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DownloaderConfig holds external downloader settings
type DownloaderConfig struct {
	Binary         string `mapstructure:"binary"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MinFreeGB      int    `mapstructure:"min_free_gb"`
}

// ImagesConfig holds thumbnail/portrait fetch settings
type ImagesConfig struct {
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
	MaxSizeMB      int64 `mapstructure:"max_size_mb"`
	RetryAttempts  int   `mapstructure:"retry_attempts"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	App      LogLevelConfig `mapstructure:"app"`
	Database LogLevelConfig `mapstructure:"database"`
}

// LogLevelConfig represents log level configuration for a specific component
type LogLevelConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// APIConfig holds API server settings
type APIConfig struct {
	Port int `mapstructure:"port"`
}

var cfg *Config

// bindEnvWithAlternatives binds a viper key to environment variables with
// alternative names, so both SHELFER_LIBRARY_SOURCE_DIR and SOURCE_DIR reach
// the same config key.
func bindEnvWithAlternatives(key string, alternatives ...string) {
	viper.BindEnv(key)
	for _, alt := range alternatives {
		if value := os.Getenv(alt); value != "" {
			viper.Set(key, value)
			break
		}
	}
}

// Load reads configuration from file and environment variables
func Load() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/shelfer")

	setDefaults()

	viper.SetEnvPrefix("SHELFER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvWithAlternatives("site.base_url", "SITE_BASE_URL")
	bindEnvWithAlternatives("site.session_cookie", "SESSION_COOKIE")
	viper.BindEnv("site.sitemap_path")
	viper.BindEnv("site.user_agent")
	viper.BindEnv("site.timeout_seconds")
	viper.BindEnv("site.retry_attempts")

	bindEnvWithAlternatives("library.source_dir", "SOURCE_DIR")
	bindEnvWithAlternatives("library.organize_root", "ORGANIZE_ROOT")
	viper.BindEnv("library.recursive")

	viper.BindEnv("matcher.min_overlap")
	viper.BindEnv("matcher.min_key_length")
	viper.BindEnv("linker.max_rename_attempts")
	viper.BindEnv("linker.hard_link_fallback")

	bindEnvWithAlternatives("database.driver", "DB_DRIVER")
	bindEnvWithAlternatives("database.path", "DB_PATH")
	bindEnvWithAlternatives("database.host", "DB_HOST")
	bindEnvWithAlternatives("database.port", "DB_PORT")
	bindEnvWithAlternatives("database.user", "DB_USER")
	bindEnvWithAlternatives("database.password", "DB_PASSWORD")
	bindEnvWithAlternatives("database.dbname", "DB_NAME")
	bindEnvWithAlternatives("database.sslmode", "DB_SSLMODE")

	bindEnvWithAlternatives("downloader.binary", "DOWNLOADER_BINARY")
	viper.BindEnv("downloader.timeout_seconds")
	viper.BindEnv("downloader.min_free_gb")

	viper.BindEnv("images.timeout_seconds")
	viper.BindEnv("images.max_size_mb")
	viper.BindEnv("images.retry_attempts")

	bindEnvWithAlternatives("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format")
	viper.BindEnv("logging.app.level")
	viper.BindEnv("logging.database.level")

	bindEnvWithAlternatives("api.port", "API_PORT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		return &Config{}
	}
	return cfg
}

// Reload reloads the configuration from file
func Reload() error {
	return Load()
}

func setDefaults() {
	// Site defaults
	viper.SetDefault("site.sitemap_path", "/sitemap.xml")
	viper.SetDefault("site.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	viper.SetDefault("site.timeout_seconds", 30)
	viper.SetDefault("site.retry_attempts", 3)

	// Library defaults
	viper.SetDefault("library.source_dir", "./videos")
	viper.SetDefault("library.organize_root", "./organized")
	viper.SetDefault("library.recursive", false)

	// Matcher defaults
	viper.SetDefault("matcher.min_overlap", 0.7)
	viper.SetDefault("matcher.min_key_length", 5)

	// Linker defaults
	viper.SetDefault("linker.max_rename_attempts", 10)
	viper.SetDefault("linker.hard_link_fallback", true)

	// Database defaults
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "./shelfer.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// Downloader defaults
	viper.SetDefault("downloader.binary", "yt-dlp")
	viper.SetDefault("downloader.timeout_seconds", 3600)
	viper.SetDefault("downloader.min_free_gb", 10)

	// Images defaults
	viper.SetDefault("images.timeout_seconds", 10)
	viper.SetDefault("images.max_size_mb", 20)
	viper.SetDefault("images.retry_attempts", 3)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// API defaults
	viper.SetDefault("api.port", 8080)
}

func validate() error {
	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Database.User == "" {
			return fmt.Errorf("database.user is required for the postgres driver")
		}
		if cfg.Database.DBName == "" {
			return fmt.Errorf("database.dbname is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be one of: sqlite, postgres")
	}

	if cfg.Matcher.MinOverlap <= 0 || cfg.Matcher.MinOverlap > 1 {
		return fmt.Errorf("matcher.min_overlap must be in (0, 1]")
	}
	if cfg.Matcher.MinKeyLength < 0 {
		return fmt.Errorf("matcher.min_key_length must not be negative")
	}
	if cfg.Linker.MaxRenameAttempts < 1 {
		return fmt.Errorf("linker.max_rename_attempts must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats := map[string]bool{"json": true, "text": true}

	if cfg.Logging.Format != "" && !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	if cfg.Logging.Level != "" && !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.App.Level != "" && !validLevels[cfg.Logging.App.Level] {
		return fmt.Errorf("logging.app.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Database.Level != "" && !validLevels[cfg.Logging.Database.Level] {
		return fmt.Errorf("logging.database.level must be one of: debug, info, warn, error")
	}

	return nil
}

// GetAppLogLevel returns the log level for application logging
// Priority: logging.app.level → logging.level → "info"
func (c *Config) GetAppLogLevel() string {
	if c.Logging.App.Level != "" {
		return c.Logging.App.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "info"
}

// GetDatabaseLogLevel returns the log level for database logging
// Priority: logging.database.level → logging.level → "info"
func (c *Config) GetDatabaseLogLevel() string {
	if c.Logging.Database.Level != "" {
		return c.Logging.Database.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "info"
}
