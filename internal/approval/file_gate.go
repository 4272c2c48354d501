package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/workflow"
)

// FileGate reads decisions dropped as JSON files into the session's
// decisions directory by the approve and reject commands. No decision
// file means pending, so a session waits indefinitely and survives
// process restarts without losing the gate state.
type FileGate struct {
	sessionDir string
}

// NewFileGate creates a FileGate for one session.
func NewFileGate(sessionDir string) *FileGate {
	return &FileGate{sessionDir: sessionDir}
}

// DecisionFileName returns the file name a decision for the given stage
// boundary is expected under.
func DecisionFileName(phase workflow.Phase, stage workflow.Stage, iteration int) string {
	return fmt.Sprintf("%s-%s-iter%d.json", phase, stage, iteration)
}

// Evaluate looks for a decision file matching the request. A present
// file is consumed: it is removed after a successful read so a stale
// decision can never apply to regenerated content.
func (g *FileGate) Evaluate(ctx context.Context, req Request) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}

	path := filepath.Join(session.DecisionsDir(g.sessionDir), DecisionFileName(req.Phase, req.Stage, req.Iteration))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Evaluation{Decision: Pending}, nil
		}
		return Evaluation{}, fmt.Errorf("failed to read decision file: %w", err)
	}

	var eval Evaluation
	if err := json.Unmarshal(data, &eval); err != nil {
		return Evaluation{}, errors.NewValidationError("malformed decision file").
			WithField("decision").WithValue(path).WithCause(err)
	}

	switch eval.Decision {
	case Approved, Rejected:
	default:
		return Evaluation{}, errors.NewValidationError("decision file must be approved or rejected").
			WithField("decision").WithValue(string(eval.Decision))
	}
	if eval.Decision == Rejected && eval.Feedback == "" {
		return Evaluation{}, errors.NewValidationError("rejected decision requires feedback").
			WithField("feedback")
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return Evaluation{}, fmt.Errorf("failed to consume decision file: %w", err)
	}

	return eval, nil
}

// WriteDecision stores a decision file for the given stage boundary. It
// is how the approve and reject commands resolve a pending gate.
func WriteDecision(sessionDir string, phase workflow.Phase, stage workflow.Stage, iteration int, eval Evaluation) error {
	if eval.Decision != Approved && eval.Decision != Rejected {
		return errors.NewValidationError("decision must be approved or rejected").
			WithField("decision").WithValue(string(eval.Decision))
	}
	if eval.Decision == Rejected && eval.Feedback == "" {
		return errors.NewValidationError("rejected decision requires feedback").
			WithField("feedback")
	}
	if eval.DecidedAt.IsZero() {
		eval.DecidedAt = time.Now()
	}

	dir := session.DecisionsDir(sessionDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create decisions directory: %w", err)
	}

	data, err := json.MarshalIndent(eval, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	path := filepath.Join(dir, DecisionFileName(phase, stage, iteration))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write decision file: %w", err)
	}
	return nil
}
