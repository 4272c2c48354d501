// Package config holds the draftflow configuration, loaded through viper
// from a YAML file and DRAFTFLOW_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete draftflow configuration.
type Config struct {
	Session  SessionConfig  `mapstructure:"session"`
	Provider ProviderConfig `mapstructure:"provider"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SessionConfig controls where session state lives.
type SessionConfig struct {
	// BaseDir is the directory holding the .draftflow tree. Empty means
	// the current working directory.
	BaseDir string `mapstructure:"base_dir"`
}

// ProviderConfig selects and tunes the response producer.
type ProviderConfig struct {
	// Type selects the provider: "manual" or "command".
	Type string `mapstructure:"type"`
	// Command is the executable for the command provider.
	Command string `mapstructure:"command"`
	// Args are extra arguments for the command provider.
	Args []string `mapstructure:"args"`
	// TimeoutSeconds bounds one command invocation (0 = provider default).
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// WaitTimeoutSeconds bounds `run --wait` on a manual provider
	// (0 = wait indefinitely).
	WaitTimeoutSeconds int `mapstructure:"wait_timeout_seconds"`
}

// ProfileConfig controls profile selection and loading.
type ProfileConfig struct {
	// Default is the profile used when init names none.
	Default string `mapstructure:"default"`
	// Dir optionally holds extra YAML profile definitions, loaded at
	// startup alongside the built-ins.
	Dir string `mapstructure:"dir"`
}

// ArtifactConfig controls write-plan materialization.
type ArtifactConfig struct {
	// Allow optionally restricts write-plan paths to these glob patterns.
	Allow []string `mapstructure:"allow"`
}

// ApprovalConfig controls the stage-boundary gates.
type ApprovalConfig struct {
	// Gate selects the gate: "auto" or "file".
	Gate string `mapstructure:"gate"`
	// MaxRetries is how many consecutive rejections a stage absorbs
	// before pausing for intervention.
	MaxRetries int `mapstructure:"max_retries"`
}

// AuditConfig controls the sqlite audit trail.
type AuditConfig struct {
	// Enabled turns the trail on. The JSON state is authoritative either way.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the trail location. Empty means audit.db next to the
	// sessions directory.
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the per-session debug log.
type LoggingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log size that triggers rotation.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is how many rotated logs to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// ValidProviderTypes returns the accepted provider type values.
func ValidProviderTypes() []string {
	return []string{"manual", "command"}
}

// ValidGates returns the accepted approval gate values.
func ValidGates() []string {
	return []string{"auto", "file"}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			BaseDir: "",
		},
		Provider: ProviderConfig{
			Type:               "manual",
			TimeoutSeconds:     600,
			WaitTimeoutSeconds: 0,
		},
		Profile: ProfileConfig{
			Default: "article",
		},
		Approval: ApprovalConfig{
			Gate:       "file",
			MaxRetries: 3,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("session.base_dir", defaults.Session.BaseDir)

	viper.SetDefault("provider.type", defaults.Provider.Type)
	viper.SetDefault("provider.command", defaults.Provider.Command)
	viper.SetDefault("provider.args", defaults.Provider.Args)
	viper.SetDefault("provider.timeout_seconds", defaults.Provider.TimeoutSeconds)
	viper.SetDefault("provider.wait_timeout_seconds", defaults.Provider.WaitTimeoutSeconds)

	viper.SetDefault("profile.default", defaults.Profile.Default)
	viper.SetDefault("profile.dir", defaults.Profile.Dir)

	viper.SetDefault("artifact.allow", defaults.Artifact.Allow)

	viper.SetDefault("approval.gate", defaults.Approval.Gate)
	viper.SetDefault("approval.max_retries", defaults.Approval.MaxRetries)

	viper.SetDefault("audit.enabled", defaults.Audit.Enabled)
	viper.SetDefault("audit.path", defaults.Audit.Path)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate returns human-readable messages for every invalid field.
func (c *Config) Validate() []string {
	var errs []string

	validType := false
	for _, t := range ValidProviderTypes() {
		if c.Provider.Type == t {
			validType = true
			break
		}
	}
	if !validType {
		errs = append(errs, fmt.Sprintf("provider.type must be one of %v, got %q", ValidProviderTypes(), c.Provider.Type))
	}
	if c.Provider.Type == "command" && strings.TrimSpace(c.Provider.Command) == "" {
		errs = append(errs, "provider.command is required when provider.type is command")
	}
	if c.Provider.TimeoutSeconds < 0 {
		errs = append(errs, "provider.timeout_seconds cannot be negative")
	}
	if c.Provider.WaitTimeoutSeconds < 0 {
		errs = append(errs, "provider.wait_timeout_seconds cannot be negative")
	}

	validGate := false
	for _, g := range ValidGates() {
		if c.Approval.Gate == g {
			validGate = true
			break
		}
	}
	if !validGate {
		errs = append(errs, fmt.Sprintf("approval.gate must be one of %v, got %q", ValidGates(), c.Approval.Gate))
	}
	if c.Approval.MaxRetries < 0 {
		errs = append(errs, "approval.max_retries cannot be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, "logging.max_size_mb must be positive")
	}

	return errs
}

// BaseDir resolves the session base directory, defaulting to the current
// working directory.
func (c *Config) BaseDir() (string, error) {
	if c.Session.BaseDir != "" {
		return c.Session.BaseDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return wd, nil
}

// AuditPath resolves the audit trail location under baseDir.
func (c *Config) AuditPath(baseDir string) string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(baseDir, ".draftflow", "audit.db")
}

// CommandTimeout returns the command provider timeout as a Duration.
func (c *ProviderConfig) CommandTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WaitTimeout returns the manual-provider wait timeout as a Duration
// (0 means wait indefinitely).
func (c *ProviderConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "draftflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".draftflow"
	}
	return filepath.Join(home, ".config", "draftflow")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
