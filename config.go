package hxrt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// InspectConfig configures the inspection HTTP server
type InspectConfig struct {
	Addr        string   `toml:"addr" yaml:"addr"`
	CorsOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
}

// Config holds runtime settings
type Config struct {
	Debug            bool          `toml:"debug" yaml:"debug"`
	LogCategories    []string      `toml:"log_categories" yaml:"log_categories"`
	LogFormat        string        `toml:"log_format" yaml:"log_format"`
	ReportUncaught   bool          `toml:"report_uncaught" yaml:"report_uncaught"`
	MailboxWarnDepth int           `toml:"mailbox_warn_depth" yaml:"mailbox_warn_depth"`
	ShutdownTimeout  time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	Inspect          InspectConfig `toml:"inspect" yaml:"inspect"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Debug:            false,
		LogFormat:        LogFormatAuto,
		ReportUncaught:   true,
		MailboxWarnDepth: 1024,
		ShutdownTimeout:  5 * time.Second,
		Inspect: InspectConfig{
			Addr: "127.0.0.1:9400",
		},
	}
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config load failed (%s): unsupported extension %q", path, filepath.Ext(path))
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig checks a configuration for values the runtime cannot use
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config validation failed: nil config")
	}
	switch cfg.LogFormat {
	case "", LogFormatAuto, LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("config validation failed: log_format %q is not one of auto, console, json", cfg.LogFormat)
	}
	for _, name := range cfg.LogCategories {
		if !knownCategory(LogCategory(name)) {
			return fmt.Errorf("config validation failed: unknown log category %q", name)
		}
	}
	if cfg.MailboxWarnDepth < 0 {
		return fmt.Errorf("config validation failed: mailbox_warn_depth must be >= 0, got %d", cfg.MailboxWarnDepth)
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("config validation failed: shutdown_timeout must be >= 0, got %s", cfg.ShutdownTimeout)
	}
	return nil
}

func knownCategory(cat LogCategory) bool {
	if cat == "all" {
		return true
	}
	for _, c := range AllCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// newLoggerFromConfig builds the runtime logger the config describes
func newLoggerFromConfig(cfg *Config) *Logger {
	format := cfg.LogFormat
	if format == "" {
		format = LogFormatAuto
	}
	logger := NewLoggerWithWriter(cfg.Debug, os.Stderr, format)
	for _, name := range cfg.LogCategories {
		if name == "all" {
			logger.EnableAllCategories()
			continue
		}
		logger.EnableCategory(LogCategory(name))
	}
	return logger
}
