// Package approval implements the stage-boundary approval gates. A gate
// evaluates produced content and yields approved, rejected or pending;
// rejected decisions carry feedback for regeneration. Gates run
// immediately once content for a stage exists; the CLI's approve and
// reject commands resolve a pending file-gate decision rather than
// triggering evaluation themselves.
//
// Separating "may proceed" from "how to proceed on rejection" from "who
// decides" lets every approval strategy (auto-approve, human-in-the-loop)
// share one state-transition contract in the orchestrator.
package approval
