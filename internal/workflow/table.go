package workflow

import "fmt"

// Action identifies the unit of side-effecting work the engine runs at an
// active position. The workflow package only names actions; the
// orchestrator implements them.
type Action string

const (
	// ActionStart opens the pipeline from init without collaborator calls.
	ActionStart Action = "start"

	// ActionProducePrompt generates the current phase's prompt, gates it,
	// and on approval hashes, records and delivers it.
	ActionProducePrompt Action = "produce_prompt"

	// ActionProcessResponse parses the current phase's response through the
	// profile, gates it, and on approval hashes and materializes artifacts.
	ActionProcessResponse Action = "process_response"

	// ActionProcessReview is ActionProcessResponse for the review phase,
	// where the profile's verdict selects the outgoing trigger.
	ActionProcessReview Action = "process_review"
)

// Trigger is the outcome of a position's action. Together with the
// position it selects the next position in the table.
type Trigger string

const (
	// TriggerStarted fires when an initialized session begins planning.
	TriggerStarted Trigger = "started"

	// TriggerPromptApproved fires when a prompt stage's content passed its
	// approval gate and was delivered.
	TriggerPromptApproved Trigger = "prompt_approved"

	// TriggerResponseApproved fires when a response stage's content was
	// processed and passed its approval gate.
	TriggerResponseApproved Trigger = "response_approved"

	// TriggerReviewPassed fires when an approved review carries a pass verdict.
	TriggerReviewPassed Trigger = "review_passed"

	// TriggerReviewFailed fires when an approved review carries a fail
	// verdict; it starts a new revision iteration.
	TriggerReviewFailed Trigger = "review_failed"

	// TriggerCancelled fires when a collaborator reports cancellation.
	TriggerCancelled Trigger = "cancelled"

	// TriggerFailed fires when a collaborator raised an unrecoverable error.
	TriggerFailed Trigger = "failed"
)

// Position is one (phase, stage) pair of the state machine.
type Position struct {
	Phase Phase
	Stage Stage
}

// String returns "phase[stage]" for diagnostics.
func (p Position) String() string {
	return fmt.Sprintf("%s[%s]", p.Phase, p.Stage)
}

// Key identifies one transition: the position an action ran at plus the
// trigger that action produced.
type Key struct {
	Position Position
	Trigger  Trigger
}

// Table is the static transition table. Actions maps each active position
// to the unit of work the engine runs there; Rules maps the outcome of
// that work to the next position. The table is pure data: lookups have no
// side effects, and an unknown key is a programming error, not a runtime
// condition.
type Table struct {
	actions map[Position]Action
	rules   map[Key]Position
}

// activePositions lists every non-terminal position in pipeline order.
var activePositions = []Position{
	{PhaseInit, StageNone},
	{PhasePlan, StagePrompt},
	{PhasePlan, StageResponse},
	{PhaseGenerate, StagePrompt},
	{PhaseGenerate, StageResponse},
	{PhaseReview, StagePrompt},
	{PhaseReview, StageResponse},
	{PhaseRevise, StagePrompt},
	{PhaseRevise, StageResponse},
}

// NewTable builds the complete transition table for the pipeline:
//
//	init -> plan[prompt] -> plan[response] -> generate[prompt] ->
//	generate[response] -> review[prompt] -> review[response] ->
//	{complete | revise[prompt] -> revise[response] -> review[prompt]}
//
// with cancelled/failed edges from every active position to the
// corresponding terminal phase.
func NewTable() *Table {
	t := &Table{
		actions: map[Position]Action{
			{PhaseInit, StageNone}:          ActionStart,
			{PhasePlan, StagePrompt}:        ActionProducePrompt,
			{PhasePlan, StageResponse}:      ActionProcessResponse,
			{PhaseGenerate, StagePrompt}:    ActionProducePrompt,
			{PhaseGenerate, StageResponse}:  ActionProcessResponse,
			{PhaseReview, StagePrompt}:      ActionProducePrompt,
			{PhaseReview, StageResponse}:    ActionProcessReview,
			{PhaseRevise, StagePrompt}:      ActionProducePrompt,
			{PhaseRevise, StageResponse}:    ActionProcessResponse,
		},
		rules: map[Key]Position{
			{Position{PhaseInit, StageNone}, TriggerStarted}:              {PhasePlan, StagePrompt},
			{Position{PhasePlan, StagePrompt}, TriggerPromptApproved}:     {PhasePlan, StageResponse},
			{Position{PhasePlan, StageResponse}, TriggerResponseApproved}: {PhaseGenerate, StagePrompt},
			{Position{PhaseGenerate, StagePrompt}, TriggerPromptApproved}: {PhaseGenerate, StageResponse},
			{Position{PhaseGenerate, StageResponse}, TriggerResponseApproved}: {PhaseReview, StagePrompt},
			{Position{PhaseReview, StagePrompt}, TriggerPromptApproved}:       {PhaseReview, StageResponse},
			{Position{PhaseReview, StageResponse}, TriggerReviewPassed}:       {PhaseComplete, StageNone},
			{Position{PhaseReview, StageResponse}, TriggerReviewFailed}:       {PhaseRevise, StagePrompt},
			{Position{PhaseRevise, StagePrompt}, TriggerPromptApproved}:       {PhaseRevise, StageResponse},
			{Position{PhaseRevise, StageResponse}, TriggerResponseApproved}:   {PhaseReview, StagePrompt},
		},
	}

	// Every active position can be cancelled or fail.
	for _, pos := range activePositions {
		t.rules[Key{pos, TriggerCancelled}] = Position{PhaseCancelled, StageNone}
		t.rules[Key{pos, TriggerFailed}] = Position{PhaseError, StageNone}
	}

	return t
}

// ActionFor returns the action to run at an active position. It panics on
// a terminal or unknown position: the engine must never ask for work there.
func (t *Table) ActionFor(pos Position) Action {
	a, ok := t.actions[pos]
	if !ok {
		panic(fmt.Sprintf("workflow: no action for position %s", pos))
	}
	return a
}

// Next returns the position reached when trigger fires at pos. It panics
// on an unknown key: the table is complete for every reachable pair, so a
// miss is a contract violation.
func (t *Table) Next(pos Position, trigger Trigger) Position {
	next, ok := t.rules[Key{pos, trigger}]
	if !ok {
		panic(fmt.Sprintf("workflow: no transition for %s + %s", pos, trigger))
	}
	return next
}

// Positions returns every active position in pipeline order. The returned
// slice is a copy.
func (t *Table) Positions() []Position {
	out := make([]Position, len(activePositions))
	copy(out, activePositions)
	return out
}
