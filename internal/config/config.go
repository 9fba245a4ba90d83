// Package config provides application configuration management using Viper.
// It supports loading from environment variables, config files, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Engage    EngageConfig
	Autosave  AutosaveConfig
	Session   SessionConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string
	Port        int
	Environment string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Name                  string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// ConnectionString returns a PostgreSQL connection string.
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// GatewayConfig holds dialogue gateway settings.
type GatewayConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// EngageConfig holds engagement trigger settings. The defaults are the
// product's tuned values: 15 seconds of page residency or 500 pixels of
// scroll depth, whichever comes first.
type EngageConfig struct {
	OpenAfter       time.Duration
	ScrollThreshold int
}

// AutosaveConfig holds partial-capture autosave settings.
type AutosaveConfig struct {
	CheckInterval       time.Duration
	InactivityThreshold time.Duration
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	// IdleTTL is how long an inactive session stays resident before the
	// manager evicts it.
	IdleTTL time.Duration
	// EvictInterval is how often eviction runs.
	EvictInterval time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables and config files.
// Environment variables take precedence over config file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/leadchat")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFoundErr) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			Environment: v.GetString("server.env"),
		},
		Database: DatabaseConfig{
			Host:                  v.GetString("database.host"),
			Port:                  v.GetInt("database.port"),
			User:                  v.GetString("database.user"),
			Password:              v.GetString("database.password"),
			Name:                  v.GetString("database.name"),
			SSLMode:               v.GetString("database.sslmode"),
			MaxConnections:        v.GetInt("database.max_connections"),
			MaxIdleConnections:    v.GetInt("database.max_idle_connections"),
			ConnectionMaxLifetime: v.GetDuration("database.connection_max_lifetime"),
		},
		Gateway: GatewayConfig{
			URL:     v.GetString("gateway.url"),
			APIKey:  v.GetString("gateway.api_key"),
			Model:   v.GetString("gateway.model"),
			Timeout: v.GetDuration("gateway.timeout"),
		},
		Engage: EngageConfig{
			OpenAfter:       v.GetDuration("engage.open_after"),
			ScrollThreshold: v.GetInt("engage.scroll_threshold"),
		},
		Autosave: AutosaveConfig{
			CheckInterval:       v.GetDuration("autosave.check_interval"),
			InactivityThreshold: v.GetDuration("autosave.inactivity_threshold"),
		},
		Session: SessionConfig{
			IdleTTL:       v.GetDuration("session.idle_ttl"),
			EvictInterval: v.GetDuration("session.evict_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Window:   v.GetDuration("rate_limit.window"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "leadchat")
	v.SetDefault("database.name", "leadchat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_connections", 5)
	v.SetDefault("database.connection_max_lifetime", "5m")

	// Gateway defaults
	v.SetDefault("gateway.timeout", "30s")

	// Engagement trigger defaults
	v.SetDefault("engage.open_after", "15s")
	v.SetDefault("engage.scroll_threshold", 500)

	// Autosave defaults
	v.SetDefault("autosave.check_interval", "30s")
	v.SetDefault("autosave.inactivity_threshold", "5m")

	// Session defaults
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.evict_interval", "5m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
}

// Validate checks that all required configuration values are present.
func (c *Config) Validate() error {
	var missing []string

	if c.Database.Password == "" {
		missing = append(missing, "DATABASE_PASSWORD")
	}
	if c.Gateway.URL == "" {
		missing = append(missing, "GATEWAY_URL")
	}
	if c.Gateway.APIKey == "" {
		missing = append(missing, "GATEWAY_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Engage.ScrollThreshold <= 0 {
		return fmt.Errorf("engage.scroll_threshold must be positive, got %d", c.Engage.ScrollThreshold)
	}
	if c.Autosave.CheckInterval <= 0 || c.Autosave.InactivityThreshold <= 0 {
		return fmt.Errorf("autosave intervals must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
