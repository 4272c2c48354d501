// Package ledger computes and audits content fingerprints. Hashing is
// deferred: a fingerprint is recorded only once content has passed its
// approval gate, never on raw drafts. On later steps the ledger re-checks
// recorded fingerprints against the files on disk; a divergence yields a
// warning, not an error. The audit is trust-based, not enforcement.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/workflow"
)

// Ledger fingerprints content with sha256. It holds no state of its own;
// fingerprints live in the workflow state it is given.
type Ledger struct{}

// New creates a Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Fingerprint returns the hex sha256 fingerprint of content.
func (l *Ledger) Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FingerprintFile returns the fingerprint of a file's current content.
func (l *Ledger) FingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.Fingerprint(data), nil
}

// RecordStage fingerprints approved stage content and records it in the
// state. It must only be called after the stage's approval gate returned
// approved; the state rejects a second hash for the same stage and
// iteration.
func (l *Ledger) RecordStage(state *workflow.State, phase workflow.Phase, stage workflow.Stage, content []byte) (string, error) {
	hash := l.Fingerprint(content)
	if err := state.SetStageHash(phase, stage, state.Iteration, hash); err != nil {
		return "", err
	}
	return hash, nil
}

// Audit re-checks every recorded artifact fingerprint against the file
// currently on disk and returns newly observed mismatches as warnings.
// Mismatches already recorded in the state are skipped so that repeated
// polling of a blocked session stays a no-op. Missing files are reported
// with an empty actual hash. Audit never fails the workflow.
func (l *Ledger) Audit(state *workflow.State, sessionDir string, now time.Time) []workflow.HashWarning {
	var found []workflow.HashWarning

	for _, a := range state.Artifacts {
		path := filepath.Join(session.IterationDir(sessionDir, a.Iteration), a.Path)

		actual, err := l.FingerprintFile(path)
		if err != nil {
			actual = ""
		}
		if actual == a.ContentHash {
			continue
		}
		if state.HasWarning(a.Path, a.Iteration, actual) {
			continue
		}

		found = append(found, workflow.HashWarning{
			Path:       a.Path,
			Iteration:  a.Iteration,
			Expected:   a.ContentHash,
			Actual:     actual,
			ObservedAt: now,
		})
	}

	return found
}
