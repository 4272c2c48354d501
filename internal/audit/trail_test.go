package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/draftflow/draftflow/internal/workflow"
)

func openTestTrail(t *testing.T) *Trail {
	t.Helper()
	trail, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { trail.Close() })
	return trail
}

func TestRecordTransition(t *testing.T) {
	trail := openTestTrail(t)

	from := workflow.Position{Phase: workflow.PhaseInit, Stage: workflow.StageNone}
	to := workflow.Position{Phase: workflow.PhasePlan, Stage: workflow.StagePrompt}

	err := trail.RecordTransition("s1", from, to, workflow.TriggerStarted, 0, "planning started", time.Now())
	if err != nil {
		t.Fatalf("RecordTransition() error = %v", err)
	}

	n, err := trail.TransitionCount("s1")
	if err != nil {
		t.Fatalf("TransitionCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("TransitionCount = %d, want 1", n)
	}

	// Counts are per session.
	n, err = trail.TransitionCount("other")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("TransitionCount(other) = %d, want 0", n)
	}
}

func TestRecordWarning(t *testing.T) {
	trail := openTestTrail(t)

	err := trail.RecordWarning("s1", workflow.HashWarning{
		Path:       "draft.md",
		Iteration:  2,
		Expected:   "aaa",
		Actual:     "bbb",
		ObservedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordWarning() error = %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	second.Close()
}
