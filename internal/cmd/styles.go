package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/draftflow/draftflow/internal/workflow"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// statusBadge renders a session status with its conventional color.
func statusBadge(status workflow.Status) string {
	switch status {
	case workflow.StatusSuccess:
		return okStyle.Render(string(status))
	case workflow.StatusError, workflow.StatusFailed:
		return failStyle.Render(string(status))
	case workflow.StatusCancelled:
		return warnStyle.Render(string(status))
	default:
		return pendingStyle.Render(string(status))
	}
}

// phaseBadge renders a phase with terminal phases colored.
func phaseBadge(phase workflow.Phase) string {
	switch phase {
	case workflow.PhaseComplete:
		return okStyle.Render(string(phase))
	case workflow.PhaseError:
		return failStyle.Render(string(phase))
	case workflow.PhaseCancelled:
		return warnStyle.Render(string(phase))
	default:
		return string(phase)
	}
}
