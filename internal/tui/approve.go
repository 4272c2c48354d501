// Package tui contains the interactive approval view: a bubbletea model
// that shows pending stage content and collects an approve or reject
// decision, with a feedback line required for rejections.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/draftflow/draftflow/internal/approval"
	"github.com/draftflow/draftflow/internal/util"
	"github.com/draftflow/draftflow/internal/workflow"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	contentStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	approveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	rejectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	maxPreviewLen = 2000
)

// ApprovalModel is the bubbletea model for one approval decision.
type ApprovalModel struct {
	sessionID string
	phase     workflow.Phase
	stage     workflow.Stage
	iteration int
	content   string

	feedback  textinput.Model
	rejecting bool
	errorMsg  string
	done      bool

	// Decision holds the collected evaluation once done.
	Decision approval.Evaluation
	// Aborted is set when the user quit without deciding.
	Aborted bool
}

// NewApprovalModel creates the model for one pending stage decision.
func NewApprovalModel(sessionID string, phase workflow.Phase, stage workflow.Stage, iteration int, content string) ApprovalModel {
	ti := textinput.New()
	ti.Placeholder = "feedback for regeneration"
	ti.CharLimit = 500
	ti.Width = 60

	return ApprovalModel{
		sessionID: sessionID,
		phase:     phase,
		stage:     stage,
		iteration: iteration,
		content:   content,
		feedback:  ti,
	}
}

// Init implements tea.Model.
func (m ApprovalModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ApprovalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.rejecting {
		switch keyMsg.Type {
		case tea.KeyEnter:
			feedback := strings.TrimSpace(m.feedback.Value())
			if feedback == "" {
				m.errorMsg = "rejection requires feedback"
				return m, nil
			}
			m.Decision = approval.Evaluation{
				Decision:  approval.Rejected,
				Feedback:  feedback,
				DecidedBy: "interactive",
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc:
			m.rejecting = false
			m.errorMsg = ""
			return m, nil
		case tea.KeyCtrlC:
			m.Aborted = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.feedback, cmd = m.feedback.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case "a", "y":
		m.Decision = approval.Evaluation{
			Decision:  approval.Approved,
			DecidedBy: "interactive",
		}
		m.done = true
		return m, tea.Quit
	case "r", "n":
		m.rejecting = true
		m.feedback.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c", "esc":
		m.Aborted = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ApprovalModel) View() string {
	if m.done || m.Aborted {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Approval needed: %s %s", m.phase, m.stage)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("session %s, iteration %d", m.sessionID, m.iteration)))
	b.WriteString("\n\n")

	b.WriteString(contentStyle.Render(util.Truncate(m.content, maxPreviewLen)))
	b.WriteString("\n\n")

	if m.rejecting {
		b.WriteString(rejectStyle.Render("Rejecting."))
		b.WriteString(" Enter feedback:\n")
		b.WriteString(m.feedback.View())
		b.WriteString("\n")
		if m.errorMsg != "" {
			b.WriteString(errorStyle.Render(m.errorMsg))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("enter: submit · esc: back"))
	} else {
		b.WriteString(approveStyle.Render("[a]pprove"))
		b.WriteString("  ")
		b.WriteString(rejectStyle.Render("[r]eject"))
		b.WriteString("  ")
		b.WriteString(helpStyle.Render("[q]uit without deciding"))
	}
	b.WriteString("\n")

	return b.String()
}

// RunApproval shows the approval view and returns the collected decision.
// A nil evaluation with nil error means the user quit without deciding.
func RunApproval(sessionID string, phase workflow.Phase, stage workflow.Stage, iteration int, content string) (*approval.Evaluation, error) {
	model := NewApprovalModel(sessionID, phase, stage, iteration, content)

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("approval view failed: %w", err)
	}

	result, ok := final.(ApprovalModel)
	if !ok || result.Aborted || !result.done {
		return nil, nil
	}
	return &result.Decision, nil
}
