package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Cancel a session",
	Long: `Move an active session to the terminal cancelled phase. All produced
artifacts stay on disk for inspection; only further transitions stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := buildApp(args[0])
	if err != nil {
		return err
	}
	defer a.cleanup()

	res, err := a.orch.Cancel(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("session %s cancelled (was at %s)\n", args[0], res.From)
	return nil
}
