// Package orchestrator drives sessions through the content pipeline. It
// owns the step engine: load state under the session lock, run the unit
// of work for the current position, and apply the resulting transition.
// All collaborator calls (profile, provider, approval gate) happen inside
// step units; the transition table itself is pure data.
package orchestrator

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftflow/draftflow/internal/approval"
	"github.com/draftflow/draftflow/internal/audit"
	"github.com/draftflow/draftflow/internal/config"
	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/ledger"
	"github.com/draftflow/draftflow/internal/logging"
	"github.com/draftflow/draftflow/internal/profile"
	"github.com/draftflow/draftflow/internal/provider"
	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/workflow"
)

// GateFactory builds the approval gate for one session directory.
type GateFactory func(sessionDir string) approval.Gate

// Orchestrator coordinates one store's sessions. It is stateless between
// calls: every operation loads, mutates and persists under the session
// lock, so a session can be driven by any number of consecutive processes.
type Orchestrator struct {
	cfg      *config.Config
	store    *session.Store
	registry *profile.Registry
	prov     provider.Provider
	table    *workflow.Table
	ledger   *ledger.Ledger
	trail    *audit.Trail
	newGate  GateFactory
	log      *logging.Logger
	now      func() time.Time
}

// Deps carries the orchestrator's collaborators. Trail may be nil to
// disable the audit trail; a nil Logger falls back to stderr errors only.
type Deps struct {
	Store    *session.Store
	Registry *profile.Registry
	Provider provider.Provider
	NewGate  GateFactory
	Trail    *audit.Trail
	Logger   *logging.Logger
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	newGate := deps.NewGate
	if newGate == nil {
		newGate = func(string) approval.Gate { return approval.NewAutoGate() }
	}
	log := deps.Logger
	if log == nil {
		log = logging.NewStderrLogger(logging.LevelError)
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    deps.Store,
		registry: deps.Registry,
		prov:     deps.Provider,
		table:    workflow.NewTable(),
		ledger:   ledger.New(),
		trail:    deps.Trail,
		newGate:  newGate,
		log:      log,
		now:      time.Now,
	}
}

// Initialize creates a new session in the initial position. No iteration
// directories and no collaborator calls happen here; the first step does
// the work.
func (o *Orchestrator) Initialize(objective, profileName string) (*workflow.State, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil, errors.NewValidationError("objective cannot be empty").
			WithField("objective")
	}

	if profileName == "" {
		profileName = o.cfg.Profile.Default
	}
	if _, err := o.registry.Get(profileName); err != nil {
		return nil, err
	}

	state := workflow.NewState(uuid.NewString(), objective, profileName, o.now())
	if err := o.store.Create(state); err != nil {
		return nil, errors.NewWorkflowError("failed to create session", err).
			WithSessionID(state.SessionID)
	}

	o.log.Info("session initialized",
		"session_id", state.SessionID,
		"profile", profileName,
	)
	return state, nil
}

// Cancel moves an active session to the terminal cancelled phase. Already
// terminal sessions are rejected.
func (o *Orchestrator) Cancel(sessionID string) (*StepResult, error) {
	sessionDir := o.store.SessionDir(sessionID)

	lock, err := session.AcquireLock(sessionDir, sessionID, o.log)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := o.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Phase.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrTerminalPhase, "session %s is already %s", sessionID, state.Phase)
	}

	from := workflow.Position{Phase: state.Phase, Stage: state.Stage}
	// Cancelling also clears a retry pause; the terminal phase supersedes it.
	state.AwaitingIntervention = false

	return o.advance(state, from, workflow.TriggerCancelled, "cancelled by user", o.now(), o.sessionLog(state))
}

// Load returns a session's current state without mutating anything.
func (o *Orchestrator) Load(sessionID string) (*workflow.State, error) {
	return o.store.Load(sessionID)
}

// Store exposes the underlying session store.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// sessionLog returns a logger carrying the session's identifying attributes.
func (o *Orchestrator) sessionLog(state *workflow.State) *logging.Logger {
	return o.log.WithSession(state.SessionID).
		WithPhase(state.Phase.String(), state.Stage.String()).
		WithIteration(state.Iteration)
}
