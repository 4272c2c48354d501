package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftflow/draftflow/internal/errors"
)

var stepCmd = &cobra.Command{
	Use:   "step <session-id>",
	Short: "Advance a session by one transition",
	Long: `Advance a session by exactly one transition. A step that finds an
unmet precondition (missing response file, pending approval) changes
nothing and exits with code 2; stepping again later is free.`,
	Args: cobra.ExactArgs(1),
	RunE: runStep,
}

func init() {
	rootCmd.AddCommand(stepCmd)
}

func runStep(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	a, err := buildApp(sessionID)
	if err != nil {
		return err
	}
	defer a.cleanup()

	res, err := a.orch.Step(cmd.Context(), sessionID)
	if err != nil {
		if errors.IsAwaitingInput(err) {
			fmt.Println(pendingStyle.Render("awaiting input: ") + err.Error())
			return err
		}
		if res != nil {
			// A collaborator failure still produced a terminal transition.
			fmt.Printf("%s → %s (%s)\n", res.From, res.To, failStyle.Render(string(res.Trigger)))
		}
		return err
	}

	if res.Terminal {
		fmt.Printf("session is %s; nothing to do\n", phaseBadge(res.To.Phase))
		return nil
	}

	fmt.Printf("%s → %s  %s\n", res.From, res.To, dimStyle.Render(res.Message))
	return nil
}
