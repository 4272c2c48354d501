package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/draftflow/draftflow/internal/approval"
	"github.com/draftflow/draftflow/internal/artifact"
	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/logging"
	"github.com/draftflow/draftflow/internal/profile"
	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/workflow"
)

// StepResult reports one completed transition.
type StepResult struct {
	From    workflow.Position
	To      workflow.Position
	Trigger workflow.Trigger
	Message string

	// Terminal is set when the session was already in a terminal phase
	// and nothing was done.
	Terminal bool
}

// stepScope bundles the per-step collaborators so action functions do not
// rebuild them.
type stepScope struct {
	state      *workflow.State
	sessionDir string
	mat        *artifact.Materializer
	gate       approval.Gate
	prof       profile.Profile
	log        *logging.Logger

	// dirty marks state mutations that must be persisted even when the
	// step ends without a transition (rejection bookkeeping).
	dirty bool
}

// Step advances a session by exactly one transition, or returns without
// mutating anything when the current position's preconditions are unmet:
//
//   - errors.ErrBlocked: awaiting a response file or a pending approval.
//     The state document is untouched, so polling is free.
//   - errors.ErrAwaitingIntervention: the retry budget is exhausted; the
//     session is paused in place until cancelled or resolved.
//
// Collaborator failures (provider errors) move the session to the
// terminal error phase and are returned alongside the transition result.
func (o *Orchestrator) Step(ctx context.Context, sessionID string) (*StepResult, error) {
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

	pos := workflow.Position{Phase: state.Phase, Stage: state.Stage}
	if state.Phase.IsTerminal() {
		return &StepResult{From: pos, To: pos, Terminal: true}, nil
	}

	now := o.now()
	log := o.sessionLog(state)

	// Audit recorded hashes against disk. Divergence warns, never halts;
	// dedupe keeps repeated polling of an unchanged tree a pure no-op.
	if warnings := o.ledger.Audit(state, sessionDir, now); len(warnings) > 0 {
		state.Warnings = append(state.Warnings, warnings...)
		for _, w := range warnings {
			log.Warn("artifact content diverged from recorded hash",
				"path", w.Path,
				"iteration", w.Iteration,
				"expected", w.Expected,
				"actual", w.Actual,
			)
			if o.trail != nil {
				if terr := o.trail.RecordWarning(state.SessionID, w); terr != nil {
					log.Warn("failed to record hash warning in audit trail", "error", terr)
				}
			}
		}
		state.UpdatedAt = now
		if err := o.store.Save(state); err != nil {
			return nil, errors.NewWorkflowError("failed to persist hash warnings", err).
				WithSessionID(sessionID)
		}
	}

	if state.AwaitingIntervention {
		return nil, errors.Wrapf(errors.ErrAwaitingIntervention,
			"session %s paused after %d rejections", sessionID, state.ApprovalRetryCount)
	}

	mat, err := artifact.New(sessionDir, o.ledger, o.cfg.Artifact.Allow)
	if err != nil {
		return nil, err
	}
	prof, err := o.registry.Get(state.ProfileName)
	if err != nil {
		return nil, err
	}

	scope := &stepScope{
		state:      state,
		sessionDir: sessionDir,
		mat:        mat,
		gate:       o.newGate(sessionDir),
		prof:       prof,
		log:        log,
	}

	trigger, message, actErr := o.runAction(ctx, scope, o.table.ActionFor(pos))
	if actErr != nil {
		if errors.IsAwaitingInput(actErr) {
			if scope.dirty {
				state.UpdatedAt = now
				if err := o.store.Save(state); err != nil {
					return nil, errors.NewWorkflowError("failed to persist rejection bookkeeping", err).
						WithSessionID(sessionID)
				}
			}
			return nil, actErr
		}

		var provErr *errors.ProviderError
		if errors.As(actErr, &provErr) {
			log.Error("collaborator failed", "error", actErr)
			res, terr := o.advance(state, pos, workflow.TriggerFailed, provErr.Error(), now, log)
			if terr != nil {
				return nil, terr
			}
			return res, actErr
		}

		if errors.Is(actErr, errors.ErrCancelled) {
			res, terr := o.advance(state, pos, workflow.TriggerCancelled, "cancelled during "+pos.String(), now, log)
			if terr != nil {
				return nil, terr
			}
			return res, actErr
		}

		// Engine-level failure: nothing transitioned, nothing persisted.
		return nil, actErr
	}

	return o.advance(state, pos, trigger, message, now, log)
}

// runAction dispatches the unit of work for an action.
func (o *Orchestrator) runAction(ctx context.Context, scope *stepScope, action workflow.Action) (workflow.Trigger, string, error) {
	switch action {
	case workflow.ActionStart:
		return workflow.TriggerStarted, "planning started", nil
	case workflow.ActionProducePrompt:
		return o.producePrompt(ctx, scope)
	case workflow.ActionProcessResponse:
		return o.processResponse(ctx, scope, false)
	case workflow.ActionProcessReview:
		return o.processResponse(ctx, scope, true)
	}
	panic(fmt.Sprintf("orchestrator: unknown action %q", action))
}

// advance applies one transition: iteration bookkeeping, position and
// status updates, the history entry, and persistence.
func (o *Orchestrator) advance(state *workflow.State, from workflow.Position, trigger workflow.Trigger, message string, now time.Time, log *logging.Logger) (*StepResult, error) {
	next := o.table.Next(from, trigger)

	// The first revision cycle begins when generation begins; planning
	// lives in iteration 0.
	allocated := false
	if next.Phase == workflow.PhaseGenerate && next.Stage == workflow.StagePrompt && state.Iteration == 0 {
		state.Iteration = 1
		allocated = true
	}
	// A failed review is the only thing that allocates a further cycle.
	if trigger == workflow.TriggerReviewFailed {
		state.Iteration++
		allocated = true
	}
	// The directory exists as soon as the iteration does, not on first write.
	if allocated {
		dir := session.IterationDir(o.store.SessionDir(state.SessionID), state.Iteration)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewWorkflowError("failed to create iteration directory", err).
				WithSessionID(state.SessionID).WithPhase(next.Phase.String())
		}
	}

	state.Phase = next.Phase
	state.Stage = next.Stage
	switch next.Phase {
	case workflow.PhaseComplete:
		state.Status = workflow.StatusSuccess
	case workflow.PhaseError:
		state.Status = workflow.StatusError
	case workflow.PhaseCancelled:
		state.Status = workflow.StatusCancelled
	default:
		state.Status = workflow.StatusInProgress
	}

	state.ResetRetries(next.Phase, next.Stage, state.Iteration)
	state.AppendHistory(next.Phase, next.Stage, state.Status, message, now)
	state.UpdatedAt = now

	if err := o.store.Save(state); err != nil {
		return nil, errors.NewWorkflowError("failed to persist transition", err).
			WithSessionID(state.SessionID).WithPhase(next.Phase.String())
	}

	if o.trail != nil {
		if err := o.trail.RecordTransition(state.SessionID, from, next, trigger, state.Iteration, message, now); err != nil {
			log.Warn("failed to record transition in audit trail", "error", err)
		}
	}

	log.Info("transition applied",
		"from", from.String(),
		"to", next.String(),
		"trigger", string(trigger),
		"iteration", state.Iteration,
	)

	return &StepResult{From: from, To: next, Trigger: trigger, Message: message}, nil
}
