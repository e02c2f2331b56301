package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("15"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")) // Blue

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Orange
)

// stateStyles colours each lifecycle state in the agent table.
var stateStyles = map[string]lipgloss.Style{
	"idle":      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	"listening": lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	"thinking":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"speaking":  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	"error":     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}
