package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initProfile string

var initCmd = &cobra.Command{
	Use:   "init <objective>",
	Short: "Create a new session",
	Long: `Create a new session for the given objective. The session starts in
the initial position; nothing is generated until the first step.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initProfile, "profile", "p", "", "content profile (default from config)")
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := buildApp("")
	if err != nil {
		return err
	}
	defer a.cleanup()

	state, err := a.orch.Initialize(args[0], initProfile)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", headerStyle.Render("Session created:"), state.SessionID)
	fmt.Printf("  profile:   %s\n", state.ProfileName)
	fmt.Printf("  objective: %s\n", state.Objective)
	fmt.Println(dimStyle.Render(fmt.Sprintf("\nRun `draftflow step %s` to begin.", state.SessionID)))
	return nil
}
