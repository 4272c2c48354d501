package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/draftflow/draftflow/internal/approval"
	"github.com/draftflow/draftflow/internal/audit"
	"github.com/draftflow/draftflow/internal/config"
	"github.com/draftflow/draftflow/internal/logging"
	"github.com/draftflow/draftflow/internal/orchestrator"
	"github.com/draftflow/draftflow/internal/profile"
	"github.com/draftflow/draftflow/internal/provider"
	"github.com/draftflow/draftflow/internal/session"
)

// app bundles everything a command needs, with a cleanup function for the
// audit trail and log file handles.
type app struct {
	cfg     *config.Config
	baseDir string
	orch    *orchestrator.Orchestrator
	cleanup func()
}

// buildApp assembles the orchestrator from configuration. When sessionID
// names an existing session, logs go to that session's debug.log;
// otherwise to stderr.
func buildApp(sessionID string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	baseDir, err := cfg.BaseDir()
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(baseDir)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	prov, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg, store, sessionID)
	if err != nil {
		return nil, err
	}

	var trail *audit.Trail
	if cfg.Audit.Enabled {
		trail, err = audit.Open(cfg.AuditPath(baseDir))
		if err != nil {
			logger.Warn("audit trail unavailable", "error", err)
			trail = nil
		}
	}

	orch := orchestrator.New(cfg, orchestrator.Deps{
		Store:    store,
		Registry: registry,
		Provider: prov,
		NewGate:  buildGateFactory(cfg),
		Trail:    trail,
		Logger:   logger,
	})

	return &app{
		cfg:     cfg,
		baseDir: baseDir,
		orch:    orch,
		cleanup: func() {
			if trail != nil {
				trail.Close()
			}
			logger.Close()
		},
	}, nil
}

func buildRegistry(cfg *config.Config) (*profile.Registry, error) {
	registry, err := profile.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}

	if cfg.Profile.Dir == "" {
		return registry, nil
	}

	entries, err := os.ReadDir(cfg.Profile.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		def, err := profile.LoadDefinition(filepath.Join(cfg.Profile.Dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		p, err := profile.NewTemplateProfile(def)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Type {
	case "command":
		return provider.NewCommandProvider(cfg.Provider.Command, cfg.Provider.Args, cfg.Provider.CommandTimeout())
	default:
		return provider.NewManualProvider(), nil
	}
}

func buildGateFactory(cfg *config.Config) orchestrator.GateFactory {
	if cfg.Approval.Gate == "auto" {
		return func(string) approval.Gate { return approval.NewAutoGate() }
	}
	return func(sessionDir string) approval.Gate { return approval.NewFileGate(sessionDir) }
}

func buildLogger(cfg *config.Config, store *session.Store, sessionID string) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewStderrLogger(logging.LevelError), nil
	}
	if sessionID == "" || !store.Exists(sessionID) {
		return logging.NewStderrLogger(cfg.Logging.Level), nil
	}

	return logging.NewLogger(store.SessionDir(sessionID), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}
