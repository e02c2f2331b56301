package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// View renders the dashboard.
func (m Model) View() string {
	if !m.ready {
		return "Starting swarmville dashboard..."
	}

	width := max(m.width-2, 20)

	agents := borderStyle.Width(width).Render(
		titleStyle.Render(fmt.Sprintf("Agents (%d)", len(m.agents))) + "\n" + m.renderTable(),
	)
	events := borderStyle.Width(width).Render(
		titleStyle.Render("Events") + "\n" + m.log.View(),
	)

	var footer string
	if m.typing {
		footer = m.input.View()
	} else {
		help := "↑/↓ select • enter message • pgup/pgdn scroll • q quit"
		if m.status != "" {
			help = m.status + " • " + help
		}
		footer = footerStyle.Render(help)
	}

	return lipgloss.JoinVertical(lipgloss.Left, agents, events, footer)
}

var columns = []struct {
	title string
	width int
}{
	{"NAME", 18},
	{"ROLE", 20},
	{"STATE", 10},
	{"POSITION", 10},
	{"TASK", 24},
}

func (m Model) renderTable() string {
	if len(m.agents) == 0 {
		return emptyStyle.Render("No agents running")
	}

	var b strings.Builder
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = pad(c.title, c.width)
	}
	b.WriteString(headerCellStyle.Render(strings.Join(headers, " ")))

	for i, a := range m.agents {
		b.WriteString("\n")
		row := m.renderRow(a)
		if i == m.selected {
			row = selectedRowStyle.Render(row)
		}
		b.WriteString(row)
	}
	return b.String()
}

func (m Model) renderRow(a models.AgentSnapshot) string {
	task := a.CurrentTask
	if task == "" {
		task = "-"
	}
	state := pad(string(a.State), columns[2].width)
	if st, ok := stateStyles[string(a.State)]; ok {
		state = st.Render(state)
	}
	cells := []string{
		pad(a.Name, columns[0].width),
		pad(a.Role, columns[1].width),
		state,
		pad(fmt.Sprintf("(%d,%d)", a.Position.X, a.Position.Y), columns[3].width),
		pad(task, columns[4].width),
	}
	return strings.Join(cells, " ")
}

// pad truncates or right-pads s to exactly n cells.
func pad(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		if n <= 1 {
			return string(r[:n])
		}
		return string(r[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-len(r))
}
