package workflow

import (
	"testing"
	"time"
)

func TestTableCoversEveryActivePosition(t *testing.T) {
	table := NewTable()

	for _, pos := range table.Positions() {
		action := table.ActionFor(pos)
		if action == "" {
			t.Errorf("position %s has empty action", pos)
		}

		// Every active position must have cancel and fail edges.
		if next := table.Next(pos, TriggerCancelled); next.Phase != PhaseCancelled {
			t.Errorf("%s + cancelled = %s, want cancelled", pos, next)
		}
		if next := table.Next(pos, TriggerFailed); next.Phase != PhaseError {
			t.Errorf("%s + failed = %s, want error", pos, next)
		}
	}
}

func TestTableHappyPath(t *testing.T) {
	table := NewTable()

	steps := []struct {
		from    Position
		trigger Trigger
		want    Position
	}{
		{Position{PhaseInit, StageNone}, TriggerStarted, Position{PhasePlan, StagePrompt}},
		{Position{PhasePlan, StagePrompt}, TriggerPromptApproved, Position{PhasePlan, StageResponse}},
		{Position{PhasePlan, StageResponse}, TriggerResponseApproved, Position{PhaseGenerate, StagePrompt}},
		{Position{PhaseGenerate, StagePrompt}, TriggerPromptApproved, Position{PhaseGenerate, StageResponse}},
		{Position{PhaseGenerate, StageResponse}, TriggerResponseApproved, Position{PhaseReview, StagePrompt}},
		{Position{PhaseReview, StagePrompt}, TriggerPromptApproved, Position{PhaseReview, StageResponse}},
		{Position{PhaseReview, StageResponse}, TriggerReviewPassed, Position{PhaseComplete, StageNone}},
	}

	for _, s := range steps {
		if got := table.Next(s.from, s.trigger); got != s.want {
			t.Errorf("%s + %s = %s, want %s", s.from, s.trigger, got, s.want)
		}
	}
}

func TestTableRevisionLoop(t *testing.T) {
	table := NewTable()

	if got := table.Next(Position{PhaseReview, StageResponse}, TriggerReviewFailed); got != (Position{PhaseRevise, StagePrompt}) {
		t.Errorf("failed review leads to %s, want revise[prompt]", got)
	}
	if got := table.Next(Position{PhaseRevise, StageResponse}, TriggerResponseApproved); got != (Position{PhaseReview, StagePrompt}) {
		t.Errorf("revise response leads to %s, want review[prompt]", got)
	}
}

func TestTablePanicsOnUnknownKey(t *testing.T) {
	table := NewTable()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for impossible transition")
		}
	}()
	table.Next(Position{PhasePlan, StagePrompt}, TriggerReviewPassed)
}

func TestTablePanicsOnTerminalAction(t *testing.T) {
	table := NewTable()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for terminal position action")
		}
	}()
	table.ActionFor(Position{PhaseComplete, StageNone})
}

func TestPhaseClassification(t *testing.T) {
	tests := []struct {
		phase    Phase
		terminal bool
		active   bool
	}{
		{PhaseInit, false, false},
		{PhasePlan, false, true},
		{PhaseGenerate, false, true},
		{PhaseReview, false, true},
		{PhaseRevise, false, true},
		{PhaseComplete, true, false},
		{PhaseError, true, false},
		{PhaseCancelled, true, false},
	}

	for _, tt := range tests {
		if got := tt.phase.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.phase, got, tt.terminal)
		}
		if got := tt.phase.IsActive(); got != tt.active {
			t.Errorf("%s.IsActive() = %v, want %v", tt.phase, got, tt.active)
		}
	}
}

func TestSetStageHashRejectsSecondWrite(t *testing.T) {
	state := NewState("s1", "objective", "article", time.Now())

	if err := state.SetStageHash(PhasePlan, StageResponse, 0, "aaa"); err != nil {
		t.Fatalf("first SetStageHash failed: %v", err)
	}
	if state.PlanHash != "aaa" {
		t.Errorf("PlanHash = %q, want aaa", state.PlanHash)
	}

	if err := state.SetStageHash(PhasePlan, StageResponse, 0, "bbb"); err == nil {
		t.Error("second SetStageHash for same stage succeeded")
	}
	if state.PlanHash != "aaa" {
		t.Errorf("PlanHash changed to %q after rejected write", state.PlanHash)
	}

	// A new iteration is a new key.
	if err := state.SetStageHash(PhasePlan, StageResponse, 1, "ccc"); err != nil {
		t.Errorf("SetStageHash for new iteration failed: %v", err)
	}
}

func TestSetStageHashTracksReviewHash(t *testing.T) {
	state := NewState("s1", "objective", "article", time.Now())

	if err := state.SetStageHash(PhaseReview, StageResponse, 1, "r1"); err != nil {
		t.Fatal(err)
	}
	if state.ReviewHash != "r1" {
		t.Errorf("ReviewHash = %q, want r1", state.ReviewHash)
	}
	if err := state.SetStageHash(PhaseReview, StageResponse, 2, "r2"); err != nil {
		t.Fatal(err)
	}
	if state.ReviewHash != "r2" {
		t.Errorf("ReviewHash = %q, want latest r2", state.ReviewHash)
	}
}

func TestHasWarningDeduplicates(t *testing.T) {
	state := NewState("s1", "objective", "article", time.Now())
	state.Warnings = append(state.Warnings, HashWarning{
		Path: "draft.md", Iteration: 1, Expected: "aaa", Actual: "bbb",
	})

	if !state.HasWarning("draft.md", 1, "bbb") {
		t.Error("identical warning not detected")
	}
	if state.HasWarning("draft.md", 1, "ccc") {
		t.Error("different observed hash reported as duplicate")
	}
	if state.HasWarning("draft.md", 2, "bbb") {
		t.Error("different iteration reported as duplicate")
	}
}

func TestIterationArtifacts(t *testing.T) {
	state := NewState("s1", "objective", "article", time.Now())
	state.Artifacts = []Artifact{
		{Path: "a.md", Iteration: 1},
		{Path: "b.md", Iteration: 2},
		{Path: "c.md", Iteration: 1},
	}

	got := state.IterationArtifacts(1)
	if len(got) != 2 || got[0].Path != "a.md" || got[1].Path != "c.md" {
		t.Errorf("IterationArtifacts(1) = %v", got)
	}
	if got := state.IterationArtifacts(3); got != nil {
		t.Errorf("IterationArtifacts(3) = %v, want nil", got)
	}
}
