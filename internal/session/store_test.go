package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/workflow"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStoreRoundTripIdentity(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	state := workflow.NewState("session-1", "write a launch post", "article", now)
	state.Phase = workflow.PhaseReview
	state.Stage = workflow.StageResponse
	state.Iteration = 2
	state.PlanHash = "abc"
	state.ApprovalRetryCount = 1
	state.RetryStageKey = workflow.StageKey(workflow.PhaseReview, workflow.StageResponse, 2)
	state.PendingFeedback = "tighten the intro"
	state.AppendHistory(workflow.PhasePlan, workflow.StagePrompt, workflow.StatusInProgress, "planning started", now)
	state.Artifacts = append(state.Artifacts, workflow.Artifact{
		Path:        "generate_response.md",
		ContentHash: "def",
		Iteration:   1,
		Kind:        workflow.ArtifactResponse,
		CreatedAt:   now,
	})
	state.Warnings = append(state.Warnings, workflow.HashWarning{
		Path: "generate_response.md", Iteration: 1, Expected: "def", Actual: "xyz", ObservedAt: now,
	})
	if err := state.SetStageHash(workflow.PhasePlan, workflow.StageResponse, 0, "abc"); err != nil {
		t.Fatal(err)
	}

	if err := store.Create(state); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, err := store.Load("session-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Compare canonical serializations; time.Time representations differ
	// internally even for identical instants.
	saved, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	got, err := json.Marshal(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if string(saved) != string(got) {
		t.Errorf("round trip lost data:\n saved: %s\nloaded: %s", saved, got)
	}
}

func TestStoreCreateRejectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	state := workflow.NewState("session-1", "objective", "article", time.Now())

	if err := store.Create(state); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(state); err == nil {
		t.Error("duplicate Create succeeded")
	}
}

func TestStoreCreateMakesNoIterationDirs(t *testing.T) {
	store := newTestStore(t)
	state := workflow.NewState("session-1", "objective", "article", time.Now())

	if err := store.Create(state); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.SessionDir("session-1"), IterationsDirName)); !os.IsNotExist(err) {
		t.Error("Create allocated an iterations directory")
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("no-such-session")
	if !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("Load missing = %v, want session-not-found", err)
	}
}

func TestStoreLoadCorrupted(t *testing.T) {
	store := newTestStore(t)
	dir := store.SessionDir("bad")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, StateFileName), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load("bad")
	if !errors.Is(err, errors.ErrSessionCorrupted) {
		t.Errorf("Load corrupt = %v, want session-corrupted", err)
	}
}

func TestStoreLoadDetectsIDMismatch(t *testing.T) {
	store := newTestStore(t)
	state := workflow.NewState("session-1", "objective", "article", time.Now())
	if err := store.Create(state); err != nil {
		t.Fatal(err)
	}

	// Copy the document under a different session ID.
	src := filepath.Join(store.SessionDir("session-1"), StateFileName)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	dir := store.SessionDir("session-2")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, StateFileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load("session-2"); !errors.Is(err, errors.ErrSessionCorrupted) {
		t.Errorf("mismatched ID = %v, want session-corrupted", err)
	}
}

func TestAcquireLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir, "session-1", nil)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	if _, err := AcquireLock(dir, "session-1", nil); !errors.Is(err, errors.ErrSessionLocked) {
		t.Errorf("second acquire = %v, want session-locked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	relock, err := AcquireLock(dir, "session-1", nil)
	if err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
	relock.Release()
}

func TestAcquireLockCleansStaleLock(t *testing.T) {
	dir := t.TempDir()

	stale := Lock{SessionID: "session-1", PID: 999999999, Hostname: "gone"}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, LockFileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := AcquireLock(dir, "session-1", nil)
	if err != nil {
		t.Fatalf("AcquireLock over stale lock failed: %v", err)
	}
	lock.Release()
}

func TestListSessions(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewStore(baseDir)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"s1", "s2"} {
		state := workflow.NewState(id, "objective "+id, "article", time.Now())
		if err := store.Create(state); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := ListSessions(baseDir)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("ListSessions returned %d sessions, want 2", len(infos))
	}
	for _, info := range infos {
		if info.IsLocked {
			t.Errorf("session %s reported locked", info.ID)
		}
		if info.Phase != workflow.PhaseInit {
			t.Errorf("session %s phase = %s, want init", info.ID, info.Phase)
		}
	}
}

func TestListSessionsEmptyBase(t *testing.T) {
	infos, err := ListSessions(t.TempDir())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if infos != nil {
		t.Errorf("ListSessions = %v, want nil", infos)
	}
}

func TestCleanupStaleLocks(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewStore(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	state := workflow.NewState("s1", "objective", "article", time.Now())
	if err := store.Create(state); err != nil {
		t.Fatal(err)
	}

	stale := Lock{SessionID: "s1", PID: 999999999, Hostname: "gone"}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.SessionDir("s1"), LockFileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	cleaned, err := CleanupStaleLocks(baseDir)
	if err != nil {
		t.Fatalf("CleanupStaleLocks failed: %v", err)
	}
	if len(cleaned) != 1 || cleaned[0] != "s1" {
		t.Errorf("cleaned = %v, want [s1]", cleaned)
	}
}
