package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftflow/draftflow/internal/errors"
)

var runWait bool

var runCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Step a session until it completes or blocks",
	Long: `Step a session repeatedly until it reaches a terminal phase or blocks
on input. With --wait and a manual provider, a missing response file is
watched instead of returned, so the run rides out the human turnaround.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runWait, "wait", "w", false, "watch for response files instead of exiting when blocked")
}

func runRun(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	a, err := buildApp(sessionID)
	if err != nil {
		return err
	}
	defer a.cleanup()

	state, err := a.orch.Run(cmd.Context(), sessionID, runWait)
	if err != nil {
		if errors.IsAwaitingInput(err) && state != nil {
			fmt.Printf("%s at %s[%s]: %s\n",
				pendingStyle.Render("paused"), state.Phase, state.Stage, err.Error())
			return err
		}
		return err
	}

	fmt.Printf("session %s finished: %s\n", sessionID, phaseBadge(state.Phase))
	return nil
}
