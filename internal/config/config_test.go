package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultValidates(t *testing.T) {
	if errs := Default().Validate(); len(errs) > 0 {
		t.Errorf("Default().Validate() = %v, want none", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad provider type", func(c *Config) { c.Provider.Type = "webhook" }, "provider.type"},
		{"command without command", func(c *Config) { c.Provider.Type = "command" }, "provider.command"},
		{"negative timeout", func(c *Config) { c.Provider.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"bad gate", func(c *Config) { c.Approval.Gate = "oracle" }, "approval.gate"},
		{"negative retries", func(c *Config) { c.Approval.MaxRetries = -1 }, "max_retries"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "max_size_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("Validate() = no errors, want at least one")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want message containing %q", errs, tt.want)
			}
		})
	}
}

func TestLoadFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("provider.type", "command")
	viper.Set("provider.command", "my-model")
	viper.Set("approval.max_retries", 5)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Type != "command" || cfg.Provider.Command != "my-model" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Approval.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Approval.MaxRetries)
	}
	// Untouched keys keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("approval.gate", "oracle")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for invalid gate")
	}
}

func TestAuditPath(t *testing.T) {
	cfg := Default()
	if got := cfg.AuditPath("/work"); got != "/work/.draftflow/audit.db" {
		t.Errorf("AuditPath = %q", got)
	}

	cfg.Audit.Path = "/elsewhere/trail.db"
	if got := cfg.AuditPath("/work"); got != "/elsewhere/trail.db" {
		t.Errorf("AuditPath override = %q", got)
	}
}
