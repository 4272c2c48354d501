package approval

import (
	"context"
	"time"

	"github.com/draftflow/draftflow/internal/workflow"
)

// Decision is the outcome of a gate evaluation.
type Decision string

const (
	// Approved lets the orchestrator hash the content and advance.
	Approved Decision = "approved"

	// Rejected sends the content back for regeneration with feedback.
	// A rejected evaluation must carry feedback.
	Rejected Decision = "rejected"

	// Pending halts the transition until an external resolution command
	// arrives. Pending leaves the session untouched: repeated polling
	// while pending is a no-op.
	Pending Decision = "pending"
)

// Request describes the content a gate is asked to evaluate.
type Request struct {
	SessionID string
	Phase     workflow.Phase
	Stage     workflow.Stage
	Iteration int

	// Content is the produced content under evaluation.
	Content string

	// Files lists the stage files backing the content, relative to the
	// iteration directory.
	Files []string

	// RetryCount is the number of rejections already recorded for this
	// stage, available to gates that escalate after repeated rejections.
	RetryCount int
}

// Evaluation is a gate's verdict. Feedback is required when the decision
// is Rejected and optional otherwise. SuggestedContent optionally carries
// an edited replacement supplied by the approver.
type Evaluation struct {
	Decision         Decision  `json:"decision"`
	Feedback         string    `json:"feedback,omitempty"`
	SuggestedContent string    `json:"suggested_content,omitempty"`
	DecidedBy        string    `json:"decided_by,omitempty"`
	DecidedAt        time.Time `json:"decided_at,omitempty"`
}

// Gate evaluates produced content at a stage boundary.
type Gate interface {
	// Evaluate returns the decision for the requested content. It must be
	// safe to call repeatedly for the same request: a pending gate keeps
	// returning Pending until resolved.
	Evaluate(ctx context.Context, req Request) (Evaluation, error)
}

// AutoGate approves everything. It is the gate for unattended runs and
// the default in tests.
type AutoGate struct{}

// NewAutoGate creates an AutoGate.
func NewAutoGate() *AutoGate {
	return &AutoGate{}
}

// Evaluate approves the content unconditionally.
func (g *AutoGate) Evaluate(ctx context.Context, req Request) (Evaluation, error) {
	return Evaluation{
		Decision:  Approved,
		DecidedBy: "auto",
		DecidedAt: time.Now(),
	}, nil
}
