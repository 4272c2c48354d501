package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/ledger"
	"github.com/draftflow/draftflow/internal/workflow"
)

func newTestMaterializer(t *testing.T, allow []string) *Materializer {
	t.Helper()
	m, err := New(t.TempDir(), ledger.New(), allow)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func TestValidatePath(t *testing.T) {
	m := newTestMaterializer(t, nil)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple", "draft.md", false},
		{"nested", "posts/intro/draft.md", false},
		{"dot segment resolved", "posts/./draft.md", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"parent traversal", "../outside.md", true},
		{"hidden traversal", "posts/../../outside.md", true},
		{"bare parent", "..", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidatePath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrUnsafePath) {
					t.Errorf("ValidatePath(%q) = %v, want unsafe-path", tt.path, err)
				}
			} else if err != nil {
				t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
			}
		})
	}
}

func TestValidatePathAllowlist(t *testing.T) {
	m := newTestMaterializer(t, []string{"content/**", "*.md"})

	if err := m.ValidatePath("draft.md"); err != nil {
		t.Errorf("allowed pattern rejected: %v", err)
	}
	if err := m.ValidatePath("content/posts/a.md"); err != nil {
		t.Errorf("allowed pattern rejected: %v", err)
	}
	if err := m.ValidatePath("secrets/key.pem"); !errors.Is(err, errors.ErrUnsafePath) {
		t.Errorf("disallowed path = %v, want unsafe-path", err)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New(t.TempDir(), ledger.New(), []string{"[invalid"}); err == nil {
		t.Error("invalid glob pattern accepted")
	}
}

func TestApplyWritesFilesAndRecords(t *testing.T) {
	m := newTestMaterializer(t, nil)
	state := workflow.NewState("s1", "objective", "article", time.Now())
	state.Iteration = 1

	plan := []workflow.FileWrite{
		{Path: "draft.md", Content: []byte("the draft")},
		{Path: "notes/outline.md", Content: []byte("the outline")},
	}
	if err := m.Apply(state, plan, workflow.ArtifactCode, time.Now()); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, w := range plan {
		data, err := os.ReadFile(filepath.Join(m.IterationDir(1), filepath.FromSlash(w.Path)))
		if err != nil {
			t.Fatalf("reading %s: %v", w.Path, err)
		}
		if string(data) != string(w.Content) {
			t.Errorf("%s content = %q, want %q", w.Path, data, w.Content)
		}
	}

	if len(state.Artifacts) != 2 {
		t.Fatalf("got %d artifact records, want 2", len(state.Artifacts))
	}
	for i, a := range state.Artifacts {
		if a.Iteration != 1 || a.Kind != workflow.ArtifactCode {
			t.Errorf("record %d = %+v", i, a)
		}
		if a.ContentHash == "" {
			t.Errorf("record %d has no content hash", i)
		}
	}
}

func TestApplyValidatesBeforeWriting(t *testing.T) {
	m := newTestMaterializer(t, nil)
	state := workflow.NewState("s1", "objective", "article", time.Now())
	state.Iteration = 1

	plan := []workflow.FileWrite{
		{Path: "draft.md", Content: []byte("ok")},
		{Path: "../escape.md", Content: []byte("bad")},
	}
	if err := m.Apply(state, plan, workflow.ArtifactCode, time.Now()); !errors.Is(err, errors.ErrUnsafePath) {
		t.Fatalf("Apply = %v, want unsafe-path", err)
	}

	// The valid entry must not have been written either.
	if _, err := os.Stat(filepath.Join(m.IterationDir(1), "draft.md")); !os.IsNotExist(err) {
		t.Error("Apply wrote files despite validation failure")
	}
	if len(state.Artifacts) != 0 {
		t.Errorf("Apply recorded %d artifacts despite failure", len(state.Artifacts))
	}
}

func TestStagePath(t *testing.T) {
	m := newTestMaterializer(t, nil)

	if got := StageFileName(workflow.PhaseGenerate, workflow.StagePrompt); got != "generate_prompt.md" {
		t.Errorf("StageFileName = %q", got)
	}
	want := filepath.Join(m.IterationDir(2), "review_response.md")
	if got := m.StagePath(2, workflow.PhaseReview, workflow.StageResponse); got != want {
		t.Errorf("StagePath = %q, want %q", got, want)
	}
}
