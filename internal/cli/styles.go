package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by command output
var (
	Primary   = lipgloss.Color("#4ECDC4")
	Success   = lipgloss.Color("#95E1A3")
	Warning   = lipgloss.Color("#FFE66D")
	Danger    = lipgloss.Color("#FF6B6B")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	RuleStyle    = lipgloss.NewStyle().Foreground(Border)
	MutedStyle   = lipgloss.NewStyle().Foreground(TextMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(Danger)
)

// printHeader writes a title followed by a rule of the same width
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, HeaderStyle.Render(title))
	fmt.Fprintln(w, RuleStyle.Render(strings.Repeat("─", lipgloss.Width(title))))
}

// shortRev abbreviates a revision for display
func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
