// Package profile defines the content collaborators of the pipeline. A
// profile knows how to phrase the prompt for each phase and how to turn a
// raw response into structured results: a status, a write-plan of files
// to materialize, and for review phases a pass/fail verdict.
//
// Profiles are defined declaratively in YAML (see Definition) so a new
// content domain needs templates, not code.
package profile

import (
	"fmt"
	"sort"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/workflow"
)

// Verdict is the outcome of a review-phase response.
type Verdict string

const (
	// VerdictNone is the verdict of non-review phases.
	VerdictNone Verdict = ""

	// VerdictPass accepts the candidate content as final.
	VerdictPass Verdict = "pass"

	// VerdictFail sends the candidate content into a revise cycle.
	VerdictFail Verdict = "fail"
)

// Context carries the session facts a prompt template may draw on.
type Context struct {
	Objective string
	Iteration int

	// Feedback is rejection feedback from the approval gate, set when a
	// prompt is regenerated after a rejection.
	Feedback string

	// Plan is the approved plan response, available from the generate
	// phase onward.
	Plan string

	// Draft is the current candidate content, available to review and
	// revise prompts.
	Draft string

	// Findings is the latest review response, available to revise prompts.
	Findings string
}

// Result is the structured outcome of processing a response.
type Result struct {
	// Status is success when the response parsed cleanly, failed when the
	// response is unusable and the phase should be retried, error when the
	// profile hit an unrecoverable failure, and cancelled when processing
	// was cancelled. Error and cancelled end the session.
	Status workflow.Status

	// WritePlan lists files to materialize into the iteration directory.
	WritePlan []workflow.FileWrite

	// Verdict is set for review-phase responses only.
	Verdict Verdict

	// Message summarizes the outcome for history and logs.
	Message string
}

// Profile is one content domain's collaborator.
type Profile interface {
	// Name returns the profile's registry name.
	Name() string

	// GeneratePrompt renders the prompt for a phase.
	GeneratePrompt(phase workflow.Phase, pctx Context) (string, error)

	// ProcessResponse parses a raw response for a phase.
	ProcessResponse(phase workflow.Phase, content string, iteration int) (Result, error)
}

// Registry holds the available profiles. It is populated at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

// Register adds a profile. Registering a duplicate name is an error.
func (r *Registry) Register(p Profile) error {
	name := p.Name()
	if name == "" {
		return errors.NewValidationError("profile name cannot be empty").WithField("name")
	}
	if _, exists := r.profiles[name]; exists {
		return fmt.Errorf("profile %q already registered", name)
	}
	r.profiles[name] = p
	return nil
}

// Get returns the profile registered under name.
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, errors.NewNotFoundError("profile", name)
	}
	return p, nil
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
