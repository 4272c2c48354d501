package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/draftflow/draftflow/internal/artifact"
	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/provider"
	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/workflow"
)

// Run steps a session until it reaches a terminal phase or blocks. With
// wait set and a manual provider, a block on a missing response file
// turns into a watch on the iteration directory instead of a return, so
// `run --wait` rides out the human turnaround.
//
// The final state is returned alongside any error: a blocked run returns
// the untouched state with errors.ErrBlocked.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, wait bool) (*workflow.State, error) {
	for {
		res, err := o.Step(ctx, sessionID)
		if err != nil {
			if wait && errors.IsBlocked(err) {
				waited, werr := o.waitForResponse(ctx, sessionID)
				if werr != nil {
					state, _ := o.store.Load(sessionID)
					return state, werr
				}
				if waited {
					continue
				}
			}
			state, _ := o.store.Load(sessionID)
			return state, err
		}

		if res.Terminal || res.To.Phase.IsTerminal() {
			return o.store.Load(sessionID)
		}

		if ctx.Err() != nil {
			state, _ := o.store.Load(sessionID)
			return state, errors.ErrCancelled
		}
	}
}

// waitForResponse blocks until the current position's response file
// appears. It only applies to a manual provider at a response stage;
// other blocks (pending approvals) return false so Run hands control
// back to the caller.
func (o *Orchestrator) waitForResponse(ctx context.Context, sessionID string) (bool, error) {
	manual, ok := o.prov.(*provider.ManualProvider)
	if !ok {
		return false, nil
	}

	state, err := o.store.Load(sessionID)
	if err != nil {
		return false, err
	}
	if state.Stage != workflow.StageResponse {
		return false, nil
	}

	responsePath := filepath.Join(
		session.IterationDir(o.store.SessionDir(sessionID), state.Iteration),
		artifact.StageFileName(state.Phase, workflow.StageResponse),
	)

	// A block with the response file already on disk is a pending
	// approval; waiting on the file would spin, so hand control back.
	if _, err := os.Stat(responsePath); err == nil {
		return false, nil
	}

	o.log.Info("waiting for response file",
		"session_id", sessionID,
		"path", responsePath,
	)
	if err := manual.AwaitResponse(ctx, responsePath, o.cfg.Provider.WaitTimeout()); err != nil {
		return false, err
	}
	return true, nil
}
