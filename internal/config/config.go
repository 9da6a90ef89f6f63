// Package config loads service configuration from file, environment, and
// defaults via viper. Environment variables use the CHECKIN_ prefix with
// underscores for nesting, e.g. CHECKIN_AI_API_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	// URL is a Postgres connection string. Empty selects the in-memory
	// store, which only makes sense for local development.
	URL string `mapstructure:"url"`
}

type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds bounds a single model call.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type CleanupConfig struct {
	RetentionHours  int `mapstructure:"retention_hours"`
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c CleanupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Load reads checkin-config.yaml from the working directory or $HOME, merges
// CHECKIN_* environment variables on top, and applies defaults. A missing
// config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("checkin-config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix("CHECKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("database.url", "")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("cleanup.retention_hours", 24)
	v.SetDefault("cleanup.interval_minutes", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks the settings a running service cannot do without.
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return errors.New("ai.api_key is required (set CHECKIN_AI_API_KEY)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Cleanup.RetentionHours <= 0 {
		return errors.New("cleanup.retention_hours must be positive")
	}
	if c.Cleanup.IntervalMinutes <= 0 {
		return errors.New("cleanup.interval_minutes must be positive")
	}
	return nil
}
