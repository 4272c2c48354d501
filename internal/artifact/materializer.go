// Package artifact executes write-plans: ordered file writes requested by
// a profile collaborator after its content passed approval. The
// materializer owns the iteration directory layout and the artifact
// records appended to workflow state.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/ledger"
	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/workflow"
)

// Materializer writes approved content into iteration directories and
// records one Artifact per file. A call is all-or-nothing from the
// caller's perspective: if any write fails, no artifact records are
// appended and the caller must treat the action as not completed.
type Materializer struct {
	sessionDir string
	ledger     *ledger.Ledger
	allow      []glob.Glob
}

// New creates a Materializer for one session. allowPatterns optionally
// restricts write-plan paths to the given glob patterns; an empty list
// allows any safe relative path.
func New(sessionDir string, lg *ledger.Ledger, allowPatterns []string) (*Materializer, error) {
	m := &Materializer{
		sessionDir: sessionDir,
		ledger:     lg,
	}

	for _, p := range allowPatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.NewValidationError("invalid artifact allow pattern").
				WithField("artifact.allow").WithValue(p).WithCause(err)
		}
		m.allow = append(m.allow, g)
	}

	return m, nil
}

// IterationDir returns the directory for one iteration of this session.
func (m *Materializer) IterationDir(iteration int) string {
	return session.IterationDir(m.sessionDir, iteration)
}

// EnsureIteration creates an iteration directory if absent.
func (m *Materializer) EnsureIteration(iteration int) error {
	if err := os.MkdirAll(m.IterationDir(iteration), 0755); err != nil {
		return fmt.Errorf("failed to create iteration directory: %w", err)
	}
	return nil
}

// ValidatePath rejects write-plan paths that could escape the iteration
// directory: absolute paths, empty paths, and paths containing parent
// traversal. If an allowlist is configured the path must also match it.
func (m *Materializer) ValidatePath(path string) error {
	if path == "" {
		return errors.NewValidationError("write-plan path cannot be empty").
			WithCause(errors.ErrUnsafePath)
	}
	if filepath.IsAbs(path) {
		return errors.NewValidationError("write-plan path must be relative").
			WithValue(path).WithCause(errors.ErrUnsafePath)
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.NewValidationError("write-plan path escapes iteration directory").
			WithValue(path).WithCause(errors.ErrUnsafePath)
	}

	if len(m.allow) > 0 {
		matched := false
		for _, g := range m.allow {
			if g.Match(clean) {
				matched = true
				break
			}
		}
		if !matched {
			return errors.NewValidationError("write-plan path not covered by allow patterns").
				WithValue(path).WithCause(errors.ErrUnsafePath)
		}
	}

	return nil
}

// Apply executes a write-plan for the state's current iteration and
// appends one Artifact record per file. All paths are validated before
// any byte is written; on a write failure the artifact list is left
// untouched and the error is returned.
func (m *Materializer) Apply(state *workflow.State, plan []workflow.FileWrite, kind workflow.ArtifactKind, now time.Time) error {
	for _, w := range plan {
		if err := m.ValidatePath(w.Path); err != nil {
			return err
		}
	}

	if err := m.EnsureIteration(state.Iteration); err != nil {
		return err
	}

	iterDir := m.IterationDir(state.Iteration)
	records := make([]workflow.Artifact, 0, len(plan))

	for _, w := range plan {
		dst := filepath.Join(iterDir, filepath.FromSlash(w.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
		if err := os.WriteFile(dst, w.Content, 0644); err != nil {
			return fmt.Errorf("failed to write artifact %s: %w", w.Path, err)
		}

		records = append(records, workflow.Artifact{
			Path:        filepath.ToSlash(w.Path),
			ContentHash: m.ledger.Fingerprint(w.Content),
			Iteration:   state.Iteration,
			Kind:        kind,
			CreatedAt:   now,
		})
	}

	state.Artifacts = append(state.Artifacts, records...)
	return nil
}

// StageFileName returns the conventional file name for a phase's prompt
// or response within an iteration directory.
func StageFileName(phase workflow.Phase, stage workflow.Stage) string {
	return fmt.Sprintf("%s_%s.md", phase, stage)
}

// StagePath returns the absolute path of a stage file for an iteration.
func (m *Materializer) StagePath(iteration int, phase workflow.Phase, stage workflow.Stage) string {
	return filepath.Join(m.IterationDir(iteration), StageFileName(phase, stage))
}
