package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/draftflow/draftflow/internal/session"
	"github.com/draftflow/draftflow/internal/util"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage draftflow sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions with their positions and lock status",
	RunE:  runSessionsList,
}

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale lock files left by dead processes",
	RunE:  runSessionsClean,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsCleanCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := buildApp("")
	if err != nil {
		return err
	}
	defer a.cleanup()

	infos, err := session.ListSessions(a.baseDir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println(dimStyle.Render("no sessions"))
		return nil
	}

	for _, info := range infos {
		lock := ""
		if info.IsLocked {
			lock = warnStyle.Render(fmt.Sprintf("  [locked by pid %d]", info.LockInfo.PID))
		}
		fmt.Printf("%s  %s[%s]  %s  iter %d%s\n",
			info.ID, phaseBadge(info.Phase), info.Stage, statusBadge(info.Status), info.Iteration, lock)
		fmt.Println(dimStyle.Render(fmt.Sprintf("    %s  (updated %s)",
			util.FirstLine(info.Objective, 60), info.Updated.Format(time.RFC3339))))
	}
	return nil
}

func runSessionsClean(cmd *cobra.Command, args []string) error {
	a, err := buildApp("")
	if err != nil {
		return err
	}
	defer a.cleanup()

	cleaned, err := session.CleanupStaleLocks(a.baseDir)
	if err != nil {
		return err
	}
	if len(cleaned) == 0 {
		fmt.Println(dimStyle.Render("no stale locks"))
		return nil
	}
	for _, id := range cleaned {
		fmt.Printf("cleaned stale lock for %s\n", id)
	}
	return nil
}
