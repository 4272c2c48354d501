package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/draftflow/draftflow/internal/util"
)

// historyLineWidth bounds rendered history lines so long transition
// messages do not wrap the status listing.
const historyLineWidth = 100

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's current position and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp(args[0])
	if err != nil {
		return err
	}
	defer a.cleanup()

	state, err := a.orch.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Session " + state.SessionID))
	fmt.Printf("  objective: %s\n", util.FirstLine(state.Objective, 80))
	fmt.Printf("  profile:   %s\n", state.ProfileName)
	fmt.Printf("  position:  %s[%s]\n", phaseBadge(state.Phase), state.Stage)
	fmt.Printf("  status:    %s\n", statusBadge(state.Status))
	fmt.Printf("  iteration: %d\n", state.Iteration)
	fmt.Printf("  updated:   %s\n", state.UpdatedAt.Format(time.RFC3339))

	if state.AwaitingIntervention {
		fmt.Printf("  %s content rejected %d times; resolve or cancel\n",
			warnStyle.Render("paused:"), state.ApprovalRetryCount)
	}
	if state.PlanHash != "" {
		fmt.Printf("  plan hash:   %s\n", dimStyle.Render(short(state.PlanHash)))
	}
	if state.ReviewHash != "" {
		fmt.Printf("  review hash: %s\n", dimStyle.Render(short(state.ReviewHash)))
	}

	if len(state.Warnings) > 0 {
		fmt.Printf("\n%s\n", warnStyle.Render(fmt.Sprintf("%d hash warning(s):", len(state.Warnings))))
		for _, w := range state.Warnings {
			fmt.Printf("  iteration %d %s: recorded %s, found %s\n",
				w.Iteration, w.Path, short(w.Expected), shortOrMissing(w.Actual))
		}
	}

	if len(state.PhaseHistory) > 0 {
		fmt.Printf("\n%s\n", headerStyle.Render("History"))
		for _, h := range state.PhaseHistory {
			line := fmt.Sprintf("  %s  %s[%s]  %s",
				h.Timestamp.Format("2006-01-02 15:04:05"), h.Phase, h.Stage, h.Message)
			fmt.Println(util.TruncateANSI(dimStyle.Render(line), historyLineWidth))
		}
	}

	return nil
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func shortOrMissing(hash string) string {
	if hash == "" {
		return "file missing"
	}
	return short(hash)
}
