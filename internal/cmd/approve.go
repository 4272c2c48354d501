package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/draftflow/draftflow/internal/approval"
	"github.com/draftflow/draftflow/internal/artifact"
	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/tui"
	"github.com/draftflow/draftflow/internal/workflow"
)

var (
	approveInteractive bool
	rejectFeedback     string
)

var approveCmd = &cobra.Command{
	Use:   "approve <session-id>",
	Short: "Approve the session's pending stage content",
	Long: `Resolve the pending approval at the session's current position. The
decision applies to the content as it is now; the next step picks it up,
fingerprints the content and advances.

With --interactive the pending content is shown for review first.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject <session-id>",
	Short: "Reject the session's pending stage content",
	Long: `Reject the pending content at the session's current position. The
feedback is handed to the next regeneration; after too many consecutive
rejections the session pauses for intervention.`,
	Args: cobra.ExactArgs(1),
	RunE: runReject,
}

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	approveCmd.Flags().BoolVarP(&approveInteractive, "interactive", "i", false, "review the content before deciding")
	rejectCmd.Flags().StringVarP(&rejectFeedback, "feedback", "f", "", "feedback for regeneration (required)")
	_ = rejectCmd.MarkFlagRequired("feedback")
}

// pendingStage loads the session and locates the content a decision
// would apply to.
func pendingStage(a *app, sessionID string) (*workflow.State, string, error) {
	state, err := a.orch.Load(sessionID)
	if err != nil {
		return nil, "", err
	}
	if state.Phase.IsTerminal() {
		return nil, "", errors.Wrapf(errors.ErrTerminalPhase, "session %s is %s", sessionID, state.Phase)
	}
	if !state.Phase.IsActive() {
		return nil, "", errors.NewValidationError("session has no pending stage content yet").
			WithField("phase").WithValue(state.Phase.String())
	}

	sessionDir := a.orch.Store().SessionDir(sessionID)
	path := filepath.Join(
		session.IterationDir(sessionDir, state.Iteration),
		artifact.StageFileName(state.Phase, state.Stage),
	)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.Wrapf(errors.ErrBlocked,
				"no %s %s content yet; step the session first", state.Phase, state.Stage)
		}
		return nil, "", err
	}
	return state, string(content), nil
}

func writeDecision(a *app, state *workflow.State, eval approval.Evaluation) error {
	sessionDir := a.orch.Store().SessionDir(state.SessionID)
	return approval.WriteDecision(sessionDir, state.Phase, state.Stage, state.Iteration, eval)
}

func runApprove(cmd *cobra.Command, args []string) error {
	a, err := buildApp(args[0])
	if err != nil {
		return err
	}
	defer a.cleanup()

	state, content, err := pendingStage(a, args[0])
	if err != nil {
		return err
	}

	eval := approval.Evaluation{Decision: approval.Approved, DecidedBy: "cli"}
	if approveInteractive {
		decision, err := tui.RunApproval(state.SessionID, state.Phase, state.Stage, state.Iteration, content)
		if err != nil {
			return err
		}
		if decision == nil {
			fmt.Println(dimStyle.Render("no decision recorded"))
			return nil
		}
		eval = *decision
	}

	if err := writeDecision(a, state, eval); err != nil {
		return err
	}

	if eval.Decision == approval.Approved {
		fmt.Printf("%s %s %s (iteration %d)\n",
			okStyle.Render("approved:"), state.Phase, state.Stage, state.Iteration)
	} else {
		fmt.Printf("%s %s %s: %s\n",
			failStyle.Render("rejected:"), state.Phase, state.Stage, eval.Feedback)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("Run `draftflow step %s` to apply.", state.SessionID)))
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	a, err := buildApp(args[0])
	if err != nil {
		return err
	}
	defer a.cleanup()

	state, _, err := pendingStage(a, args[0])
	if err != nil {
		return err
	}

	eval := approval.Evaluation{
		Decision:  approval.Rejected,
		Feedback:  rejectFeedback,
		DecidedBy: "cli",
	}
	if err := writeDecision(a, state, eval); err != nil {
		return err
	}

	fmt.Printf("%s %s %s: %s\n",
		failStyle.Render("rejected:"), state.Phase, state.Stage, rejectFeedback)
	fmt.Println(dimStyle.Render(fmt.Sprintf("Run `draftflow step %s` to regenerate.", state.SessionID)))
	return nil
}
