package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/draftflow/draftflow/internal/approval"
	"github.com/draftflow/draftflow/internal/artifact"
	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/profile"
	"github.com/draftflow/draftflow/internal/provider"
	"github.com/draftflow/draftflow/internal/workflow"
)

// producePrompt is the unit of work at every prompt stage: render the
// prompt draft (once; the file on disk survives blocked polls), gate it,
// and on approval fingerprint it, record it as an artifact and hand it to
// the provider.
func (o *Orchestrator) producePrompt(ctx context.Context, scope *stepScope) (workflow.Trigger, string, error) {
	state := scope.state
	promptPath := scope.mat.StagePath(state.Iteration, state.Phase, workflow.StagePrompt)
	promptFile := artifact.StageFileName(state.Phase, workflow.StagePrompt)

	for {
		content, err := os.ReadFile(promptPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return "", "", fmt.Errorf("failed to read prompt draft: %w", err)
			}

			pctx, cerr := o.buildContext(scope)
			if cerr != nil {
				return "", "", cerr
			}
			prompt, perr := scope.prof.GeneratePrompt(state.Phase, pctx)
			if perr != nil {
				return "", "", perr
			}
			if merr := scope.mat.EnsureIteration(state.Iteration); merr != nil {
				return "", "", merr
			}
			// Draft, not artifact: unhashed until it passes the gate.
			if werr := os.WriteFile(promptPath, []byte(prompt), 0644); werr != nil {
				return "", "", fmt.Errorf("failed to write prompt draft: %w", werr)
			}
			content = []byte(prompt)
			scope.log.Debug("prompt draft written", "path", promptFile)
		}

		eval, err := scope.gate.Evaluate(ctx, approval.Request{
			SessionID:  state.SessionID,
			Phase:      state.Phase,
			Stage:      workflow.StagePrompt,
			Iteration:  state.Iteration,
			Content:    string(content),
			Files:      []string{promptFile},
			RetryCount: state.ApprovalRetryCount,
		})
		if err != nil {
			return "", "", err
		}

		switch eval.Decision {
		case approval.Pending:
			return "", "", errors.Wrapf(errors.ErrBlocked, "%s prompt awaiting approval", state.Phase)

		case approval.Rejected:
			if err := o.recordRejection(scope, workflow.StagePrompt, eval.Feedback); err != nil {
				return "", "", err
			}
			// Drop the draft so the next pass regenerates with feedback.
			if err := os.Remove(promptPath); err != nil && !os.IsNotExist(err) {
				return "", "", fmt.Errorf("failed to remove rejected draft: %w", err)
			}
			continue

		case approval.Approved:
			if eval.SuggestedContent != "" {
				content = []byte(eval.SuggestedContent)
				if err := os.WriteFile(promptPath, content, 0644); err != nil {
					return "", "", fmt.Errorf("failed to write approved prompt: %w", err)
				}
			}

			hash, err := o.ledger.RecordStage(state, state.Phase, workflow.StagePrompt, content)
			if err != nil {
				return "", "", errors.NewWorkflowError("failed to record prompt hash", err).
					WithSessionID(state.SessionID).WithPhase(state.Phase.String())
			}
			scope.dirty = true
			state.Artifacts = append(state.Artifacts, workflow.Artifact{
				Path:        promptFile,
				ContentHash: hash,
				Iteration:   state.Iteration,
				Kind:        workflow.ArtifactPrompt,
				CreatedAt:   o.now(),
			})

			responsePath := scope.mat.StagePath(state.Iteration, state.Phase, workflow.StageResponse)
			delivery, err := o.prov.Deliver(ctx, promptPath, responsePath)
			if err != nil {
				return "", "", err
			}
			if delivery.Outcome == provider.Cancelled {
				return "", "", errors.ErrCancelled
			}

			msg := fmt.Sprintf("%s prompt approved and delivered", state.Phase)
			if delivery.Detail != "" {
				msg += ": " + delivery.Detail
			}
			return workflow.TriggerPromptApproved, msg, nil

		default:
			return "", "", errors.NewValidationError("gate returned unknown decision").
				WithField("decision").WithValue(string(eval.Decision))
		}
	}
}

// processResponse is the unit of work at every response stage: blocked
// until the response file exists, then parse it through the profile, gate
// the content, and on approval fingerprint it and materialize its
// write-plan. For review stages the profile's verdict selects the trigger.
func (o *Orchestrator) processResponse(ctx context.Context, scope *stepScope, isReview bool) (workflow.Trigger, string, error) {
	state := scope.state
	responsePath := scope.mat.StagePath(state.Iteration, state.Phase, workflow.StageResponse)
	responseFile := artifact.StageFileName(state.Phase, workflow.StageResponse)

	for {
		content, err := os.ReadFile(responsePath)
		if err != nil {
			if os.IsNotExist(err) {
				return "", "", errors.Wrapf(errors.ErrBlocked, "%s response not yet available", state.Phase)
			}
			return "", "", fmt.Errorf("failed to read response: %w", err)
		}

		result, err := scope.prof.ProcessResponse(state.Phase, string(content), state.Iteration)
		if err != nil {
			return "", "", err
		}
		if cerr := o.checkResult(scope, result); cerr != nil {
			return "", "", cerr
		}

		eval, err := scope.gate.Evaluate(ctx, approval.Request{
			SessionID:  state.SessionID,
			Phase:      state.Phase,
			Stage:      workflow.StageResponse,
			Iteration:  state.Iteration,
			Content:    string(content),
			Files:      []string{responseFile},
			RetryCount: state.ApprovalRetryCount,
		})
		if err != nil {
			return "", "", err
		}

		switch eval.Decision {
		case approval.Pending:
			return "", "", errors.Wrapf(errors.ErrBlocked, "%s response awaiting approval", state.Phase)

		case approval.Rejected:
			if err := o.recordRejection(scope, workflow.StageResponse, eval.Feedback); err != nil {
				return "", "", err
			}
			if err := o.redeliverWithFeedback(ctx, scope, responsePath, eval.Feedback); err != nil {
				return "", "", err
			}
			continue

		case approval.Approved:
			if eval.SuggestedContent != "" {
				content = []byte(eval.SuggestedContent)
				if err := os.WriteFile(responsePath, content, 0644); err != nil {
					return "", "", fmt.Errorf("failed to write approved response: %w", err)
				}
				// Re-parse: the approver's edit may change the write-plan,
				// or break the response outright.
				result, err = scope.prof.ProcessResponse(state.Phase, string(content), state.Iteration)
				if err != nil {
					return "", "", err
				}
				if cerr := o.checkResult(scope, result); cerr != nil {
					return "", "", cerr
				}
			}

			hash, err := o.ledger.RecordStage(state, state.Phase, workflow.StageResponse, content)
			if err != nil {
				return "", "", errors.NewWorkflowError("failed to record response hash", err).
					WithSessionID(state.SessionID).WithPhase(state.Phase.String())
			}
			scope.dirty = true
			now := o.now()
			state.Artifacts = append(state.Artifacts, workflow.Artifact{
				Path:        responseFile,
				ContentHash: hash,
				Iteration:   state.Iteration,
				Kind:        workflow.ArtifactResponse,
				CreatedAt:   now,
			})

			if len(result.WritePlan) > 0 {
				if err := scope.mat.Apply(state, result.WritePlan, workflow.ArtifactCode, now); err != nil {
					return "", "", err
				}
			}

			if isReview {
				if result.Verdict == profile.VerdictPass {
					return workflow.TriggerReviewPassed, "review passed: " + result.Message, nil
				}
				return workflow.TriggerReviewFailed, "review failed: " + result.Message, nil
			}
			msg := fmt.Sprintf("%s response approved", state.Phase)
			if result.Message != "" {
				msg += ": " + result.Message
			}
			return workflow.TriggerResponseApproved, msg, nil

		default:
			return "", "", errors.NewValidationError("gate returned unknown decision").
				WithField("decision").WithValue(string(eval.Decision))
		}
	}
}

// checkResult maps a collaborator-reported status to the engine condition
// it stands for: cancellation propagates as cancellation, an error is a
// collaborator failure, and an unusable-but-present response holds the
// position so the operator can fix or replace the file. Nothing is hashed
// at this point.
func (o *Orchestrator) checkResult(scope *stepScope, result profile.Result) error {
	switch result.Status {
	case workflow.StatusCancelled:
		return errors.ErrCancelled
	case workflow.StatusError:
		msg := result.Message
		if msg == "" {
			msg = "profile reported an unrecoverable error"
		}
		return errors.NewProviderError(msg, nil).
			WithProvider(scope.prof.Name()).
			WithOperation("process_response")
	case workflow.StatusFailed:
		scope.log.Warn("response unusable", "reason", result.Message)
		return errors.Wrapf(errors.ErrBlocked, "%s response unusable: %s", scope.state.Phase, result.Message)
	}
	return nil
}

// recordRejection applies one gate rejection: bump the per-stage retry
// counter, store the feedback for regeneration, and pause the session if
// the budget is exhausted.
func (o *Orchestrator) recordRejection(scope *stepScope, stage workflow.Stage, feedback string) error {
	state := scope.state
	scope.dirty = true

	key := workflow.StageKey(state.Phase, stage, state.Iteration)
	if state.RetryStageKey != key {
		state.ApprovalRetryCount = 0
		state.RetryStageKey = key
	}
	state.ApprovalRetryCount++
	state.PendingFeedback = feedback

	scope.log.Info("content rejected",
		"stage", stage.String(),
		"retry", state.ApprovalRetryCount,
		"feedback", feedback,
	)

	if state.ApprovalRetryCount >= o.cfg.Approval.MaxRetries {
		state.AwaitingIntervention = true
		return errors.Wrapf(errors.ErrAwaitingIntervention,
			"%s %s rejected %d times", state.Phase, stage, state.ApprovalRetryCount)
	}
	return nil
}

// redeliverWithFeedback retries a rejected response: the stale response is
// removed and the provider reruns a retry prompt carrying the feedback.
// The approved prompt file stays untouched so its recorded hash holds.
func (o *Orchestrator) redeliverWithFeedback(ctx context.Context, scope *stepScope, responsePath, feedback string) error {
	state := scope.state

	if err := os.Remove(responsePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove rejected response: %w", err)
	}

	promptPath := scope.mat.StagePath(state.Iteration, state.Phase, workflow.StagePrompt)
	prompt, err := os.ReadFile(promptPath)
	if err != nil {
		return fmt.Errorf("failed to read prompt for redelivery: %w", err)
	}

	retry := fmt.Sprintf("%s\n\nThe previous response was rejected. Address this feedback:\n%s\n", prompt, feedback)
	retryPath := scope.mat.StagePath(state.Iteration, state.Phase, workflow.StagePrompt) +
		fmt.Sprintf(".retry-%d", state.ApprovalRetryCount)
	if err := os.WriteFile(retryPath, []byte(retry), 0644); err != nil {
		return fmt.Errorf("failed to write retry prompt: %w", err)
	}

	delivery, err := o.prov.Deliver(ctx, retryPath, responsePath)
	if err != nil {
		return err
	}
	if delivery.Outcome == provider.Cancelled {
		return errors.ErrCancelled
	}
	return nil
}

// buildContext assembles the prompt-template inputs from the session's
// approved artifacts.
func (o *Orchestrator) buildContext(scope *stepScope) (profile.Context, error) {
	state := scope.state
	pctx := profile.Context{
		Objective: state.Objective,
		Iteration: state.Iteration,
		Feedback:  state.PendingFeedback,
	}

	// The approved plan lives in iteration 0.
	pctx.Plan = o.readStage(scope, 0, workflow.PhasePlan, workflow.StageResponse)

	switch state.Phase {
	case workflow.PhaseReview:
		pctx.Draft = o.latestDraft(scope, state.Iteration)
	case workflow.PhaseRevise:
		// Revising iteration N reacts to iteration N-1's draft and review.
		prev := state.Iteration - 1
		pctx.Draft = o.latestDraft(scope, prev)
		pctx.Findings = o.readStage(scope, prev, workflow.PhaseReview, workflow.StageResponse)
	}

	return pctx, nil
}

// latestDraft returns the candidate content of an iteration: the revise
// response if that iteration revised, the generate response otherwise.
func (o *Orchestrator) latestDraft(scope *stepScope, iteration int) string {
	if content := o.readStage(scope, iteration, workflow.PhaseRevise, workflow.StageResponse); content != "" {
		return content
	}
	return o.readStage(scope, iteration, workflow.PhaseGenerate, workflow.StageResponse)
}

// readStage returns a stage file's content, or empty when absent.
func (o *Orchestrator) readStage(scope *stepScope, iteration int, phase workflow.Phase, stage workflow.Stage) string {
	data, err := os.ReadFile(scope.mat.StagePath(iteration, phase, stage))
	if err != nil {
		return ""
	}
	return string(data)
}
