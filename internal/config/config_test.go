package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Password: "secret"},
		Gateway:  GatewayConfig{URL: "https://dialogue.example.com/v1/turns", APIKey: "key"},
		Engage:   EngageConfig{OpenAfter: 15 * time.Second, ScrollThreshold: 500},
		Autosave: AutosaveConfig{CheckInterval: 30 * time.Second, InactivityThreshold: 5 * time.Minute},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no database password", func(c *Config) { c.Database.Password = "" }},
		{"no gateway url", func(c *Config) { c.Gateway.URL = "" }},
		{"no gateway api key", func(c *Config) { c.Gateway.APIKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_BadIntervals(t *testing.T) {
	cfg := validConfig()
	cfg.Engage.ScrollThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero scroll threshold")
	}

	cfg = validConfig()
	cfg.Autosave.CheckInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero autosave interval")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := &DatabaseConfig{
		Host: "db.internal", Port: 5432,
		User: "leadchat", Password: "pw",
		Name: "leadchat", SSLMode: "require",
	}
	want := "postgres://leadchat:pw@db.internal:5432/leadchat?sslmode=require"
	if got := d.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Environment: "development"}}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("development flags wrong")
	}
	cfg.Server.Environment = "production"
	if cfg.IsDevelopment() || !cfg.IsProduction() {
		t.Error("production flags wrong")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "secret")
	t.Setenv("GATEWAY_URL", "https://dialogue.example.com/v1/turns")
	t.Setenv("GATEWAY_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engage.OpenAfter != 15*time.Second {
		t.Errorf("engage.open_after default = %v, want 15s", cfg.Engage.OpenAfter)
	}
	if cfg.Engage.ScrollThreshold != 500 {
		t.Errorf("engage.scroll_threshold default = %d, want 500", cfg.Engage.ScrollThreshold)
	}
	if cfg.Autosave.CheckInterval != 30*time.Second {
		t.Errorf("autosave.check_interval default = %v, want 30s", cfg.Autosave.CheckInterval)
	}
	if cfg.Autosave.InactivityThreshold != 5*time.Minute {
		t.Errorf("autosave.inactivity_threshold default = %v, want 5m", cfg.Autosave.InactivityThreshold)
	}
	if cfg.Gateway.Timeout != 30*time.Second {
		t.Errorf("gateway.timeout default = %v, want 30s", cfg.Gateway.Timeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port default = %d", cfg.Server.Port)
	}
}
