package workflow

import (
	"fmt"
	"time"
)

// Phase represents a top-level stage of the content-generation pipeline.
type Phase string

const (
	// PhaseInit is the phase of a freshly initialized session.
	PhaseInit Phase = "init"

	// PhasePlan produces and reviews the high-level plan.
	PhasePlan Phase = "plan"

	// PhaseGenerate produces the candidate content for the current iteration.
	PhaseGenerate Phase = "generate"

	// PhaseReview evaluates the candidate content and yields a pass/fail verdict.
	PhaseReview Phase = "review"

	// PhaseRevise reworks the candidate content after a failed review.
	PhaseRevise Phase = "revise"

	// PhaseComplete indicates the session finished successfully.
	PhaseComplete Phase = "complete"

	// PhaseError indicates the session terminated due to a collaborator failure.
	PhaseError Phase = "error"

	// PhaseCancelled indicates the session was cancelled.
	PhaseCancelled Phase = "cancelled"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true if this phase accepts no further transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseError || p == PhaseCancelled
}

// IsActive returns true if the phase is a pipeline phase with prompt and
// response stages.
func (p Phase) IsActive() bool {
	switch p {
	case PhasePlan, PhaseGenerate, PhaseReview, PhaseRevise:
		return true
	}
	return false
}

// Stage represents the sub-step within an active phase.
type Stage string

const (
	// StagePrompt indicates the phase's prompt is being produced or approved.
	StagePrompt Stage = "prompt"

	// StageResponse indicates the phase is awaiting or processing a response.
	StageResponse Stage = "response"

	// StageNone is the stage of init and terminal phases.
	StageNone Stage = "none"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Status represents the overall status of a session or a collaborator result.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ArtifactKind classifies a recorded artifact file.
type ArtifactKind string

const (
	ArtifactPrompt   ArtifactKind = "prompt"
	ArtifactResponse ArtifactKind = "response"
	ArtifactCode     ArtifactKind = "code"
)

// Artifact records one file produced by a materialization. Records are
// immutable once appended; a later iteration never edits an earlier record.
type Artifact struct {
	// Path is relative to the artifact's iteration directory.
	Path string `json:"path"`
	// ContentHash is the sha256 fingerprint of the file at approval time.
	ContentHash string `json:"content_hash"`
	// Iteration is the cycle that produced this artifact.
	Iteration int `json:"iteration"`
	// Kind classifies the artifact.
	Kind ArtifactKind `json:"kind"`
	// CreatedAt is when the artifact record was appended.
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is one append-only snapshot of a completed transition.
type HistoryEntry struct {
	Phase     Phase     `json:"phase"`
	Stage     Stage     `json:"stage"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HashWarning records a divergence between an artifact's recorded hash and
// its current on-disk content. Warnings are audit data only; they never
// block or fail the workflow.
type HashWarning struct {
	Path       string    `json:"path"`
	Iteration  int       `json:"iteration"`
	Expected   string    `json:"expected"`
	Actual     string    `json:"actual"`
	ObservedAt time.Time `json:"observed_at"`
}

// FileWrite is one entry of a write-plan: a relative path and the content
// to place there. Write-plans are produced by profile collaborators and
// executed by the artifact materializer.
type FileWrite struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// State is the persisted record of one session's position in the pipeline.
// It is exclusively owned by the orchestrator while mutations are applied;
// callers must serialize access through the session lock.
type State struct {
	// SessionID is assigned at creation and immutable.
	SessionID string `json:"session_id"`

	// Objective is the task description supplied at initialization.
	Objective string `json:"objective"`

	// ProfileName selects the profile collaborator for this session.
	ProfileName string `json:"profile"`

	Phase  Phase  `json:"phase"`
	Stage  Stage  `json:"stage"`
	Status Status `json:"status"`

	// Iteration is 0 before generation starts, then monotonically
	// non-decreasing. Iteration N+1 is allocated only by a failed review.
	Iteration int `json:"iteration"`

	// PhaseHistory grows by exactly one entry per successful transition
	// and is never truncated or reordered.
	PhaseHistory []HistoryEntry `json:"phase_history"`

	// Artifacts holds the recorded artifacts of all iterations. Once a new
	// iteration begins, the previous iteration's set is closed to writes.
	Artifacts []Artifact `json:"artifacts"`

	// PlanHash is the fingerprint of the approved plan response.
	PlanHash string `json:"plan_hash,omitempty"`

	// ReviewHash is the fingerprint of the latest approved review response.
	ReviewHash string `json:"review_hash,omitempty"`

	// StageHashes maps a stage key (see StageKey) to the fingerprint of the
	// approved content for that stage. Each key is set at most once.
	StageHashes map[string]string `json:"stage_hashes,omitempty"`

	// ApprovalRetryCount counts consecutive gate rejections for the active
	// stage. It resets when the gate's stage changes.
	ApprovalRetryCount int `json:"approval_retry_count"`

	// RetryStageKey identifies which stage ApprovalRetryCount belongs to.
	RetryStageKey string `json:"retry_stage_key,omitempty"`

	// AwaitingIntervention is set when rejections exhausted the retry
	// budget. The session pauses in place until resolved externally.
	AwaitingIntervention bool `json:"awaiting_intervention,omitempty"`

	// PendingFeedback carries rejection feedback into the next regeneration.
	PendingFeedback string `json:"pending_feedback,omitempty"`

	// Warnings holds non-blocking hash audit findings.
	Warnings []HashWarning `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a zeroed state for a freshly initialized session.
func NewState(sessionID, objective, profileName string, now time.Time) *State {
	return &State{
		SessionID:   sessionID,
		Objective:   objective,
		ProfileName: profileName,
		Phase:       PhaseInit,
		Stage:       StageNone,
		Status:      StatusInProgress,
		Iteration:   0,
		StageHashes: make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StageKey returns the hash-ledger key for a stage within an iteration.
func StageKey(phase Phase, stage Stage, iteration int) string {
	return fmt.Sprintf("%s/%s#%d", phase, stage, iteration)
}

// SetStageHash records the fingerprint for a stage. It returns an error if
// the stage was already hashed for this iteration: hashes are set at most
// once per iteration per stage.
func (s *State) SetStageHash(phase Phase, stage Stage, iteration int, hash string) error {
	if s.StageHashes == nil {
		s.StageHashes = make(map[string]string)
	}
	key := StageKey(phase, stage, iteration)
	if existing, ok := s.StageHashes[key]; ok {
		return fmt.Errorf("stage %s already hashed (%s)", key, existing)
	}
	s.StageHashes[key] = hash

	switch {
	case phase == PhasePlan && stage == StageResponse:
		s.PlanHash = hash
	case phase == PhaseReview && stage == StageResponse:
		s.ReviewHash = hash
	}
	return nil
}

// StageHash returns the recorded fingerprint for a stage, if set.
func (s *State) StageHash(phase Phase, stage Stage, iteration int) (string, bool) {
	h, ok := s.StageHashes[StageKey(phase, stage, iteration)]
	return h, ok
}

// AppendHistory appends one snapshot to the phase history.
func (s *State) AppendHistory(phase Phase, stage Stage, status Status, message string, now time.Time) {
	s.PhaseHistory = append(s.PhaseHistory, HistoryEntry{
		Phase:     phase,
		Stage:     stage,
		Status:    status,
		Message:   message,
		Timestamp: now,
	})
}

// ResetRetries resets the approval retry bookkeeping for a new stage.
func (s *State) ResetRetries(phase Phase, stage Stage, iteration int) {
	s.ApprovalRetryCount = 0
	s.RetryStageKey = StageKey(phase, stage, iteration)
	s.PendingFeedback = ""
}

// IterationArtifacts returns the artifact records for one iteration.
func (s *State) IterationArtifacts(iteration int) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts {
		if a.Iteration == iteration {
			out = append(out, a)
		}
	}
	return out
}

// HasWarning reports whether an equivalent hash warning was already recorded.
// Warnings are deduplicated by path, iteration and observed content hash so
// that repeated polling of a blocked session stays a no-op.
func (s *State) HasWarning(path string, iteration int, actual string) bool {
	for _, w := range s.Warnings {
		if w.Path == path && w.Iteration == iteration && w.Actual == actual {
			return true
		}
	}
	return false
}
