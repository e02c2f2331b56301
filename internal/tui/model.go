// Package tui renders a live terminal dashboard of running agents.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/swarmville/internal/bus"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Source is the runtime surface the dashboard reads from and writes to.
type Source interface {
	Snapshots() []models.AgentSnapshot
	SendMessage(id, from, content string) error
}

const (
	// DefaultRefresh is how often agent snapshots are polled.
	DefaultRefresh = 250 * time.Millisecond
	// maxLogLines bounds the event log.
	maxLogLines = 1000
)

type eventMsg bus.Event

type subClosedMsg struct{}

type refreshMsg time.Time

// Model is the top-level bubbletea model for the dashboard.
type Model struct {
	src     Source
	sub     *bus.Subscription
	refresh time.Duration

	agents   []models.AgentSnapshot
	names    map[string]string
	selected int

	log    viewport.Model
	lines  []string
	lagged uint64

	input  textinput.Model
	typing bool
	status string

	width, height int
	ready         bool
}

// New creates a dashboard model. It subscribes to b immediately.
func New(src Source, b *bus.Bus, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	ti := textinput.New()
	ti.Placeholder = "Message the selected agent (Enter to send, Esc to cancel)"
	ti.CharLimit = 500

	return Model{
		src:     src,
		sub:     b.Subscribe(),
		refresh: refresh,
		names:   make(map[string]string),
		log:     viewport.New(0, 0),
		input:   ti,
	}
}

// Init starts the event listener and the snapshot poller.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.sub), refreshNow())
}

// waitForEvent blocks until the next bus event.
func waitForEvent(sub *bus.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C()
		if !ok {
			return subClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func refreshNow() tea.Cmd {
	return func() tea.Msg { return refreshMsg(time.Now()) }
}

func refreshAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.appendEvent(bus.Event(msg))
		return m, waitForEvent(m.sub)

	case subClosedMsg:
		m.status = "event stream closed"
		return m, nil

	case refreshMsg:
		m.setAgents(m.src.Snapshots())
		return m, refreshAfter(m.refresh)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.typing {
		switch msg.Type {
		case tea.KeyEsc:
			m.stopTyping()
			return m, nil
		case tea.KeyEnter:
			m.sendInput()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.agents)-1 {
			m.selected++
		}
	case "enter", "m":
		if len(m.agents) > 0 {
			m.typing = true
			m.status = ""
			cmd := m.input.Focus()
			return m, cmd
		}
	case "G", "end":
		m.log.GotoBottom()
	default:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) stopTyping() {
	m.typing = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) sendInput() {
	text := strings.TrimSpace(m.input.Value())
	defer m.stopTyping()
	if text == "" || m.selected >= len(m.agents) {
		return
	}
	target := m.agents[m.selected]
	if err := m.src.SendMessage(target.ID, "user", text); err != nil {
		m.status = fmt.Sprintf("send to %s failed: %v", target.Name, err)
		return
	}
	m.status = "sent to " + target.Name
}

func (m *Model) setAgents(agents []models.AgentSnapshot) {
	m.agents = agents
	for _, a := range agents {
		m.names[a.ID] = a.Name
	}
	if m.selected >= len(m.agents) {
		m.selected = max(len(m.agents)-1, 0)
	}
	m.resize()
}

func (m *Model) appendEvent(ev bus.Event) {
	if lc, ok := ev.Lifecycle(); ok && lc.Agent != nil {
		m.names[lc.Agent.ID] = lc.Agent.Name
	}
	if n := m.sub.Lagged(); n > m.lagged {
		m.lines = append(m.lines, warnStyle.Render(fmt.Sprintf("… %d events dropped", n-m.lagged)))
		m.lagged = n
	}

	line := timeStyle.Render(ev.Timestamp.Format("15:04:05")) + " " + m.describe(ev)
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}

	atBottom := m.log.AtBottom()
	m.log.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.log.GotoBottom()
	}
}

// nameOf returns the agent's display name, falling back to a short id.
func (m Model) nameOf(id string) string {
	if name, ok := m.names[id]; ok {
		return name
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m Model) describe(ev bus.Event) string {
	who := agentStyle.Render(m.nameOf(ev.AgentID))
	switch ev.Type {
	case bus.EventAgentSpoke:
		to := ev.Recipient
		if to == "" {
			to = "broadcast"
		} else if to != "broadcast" {
			to = m.nameOf(to)
		}
		return fmt.Sprintf("%s → %s: %s", who, to, ev.Content)
	case bus.EventAgentMoved:
		if ev.Position != nil {
			return fmt.Sprintf("%s moved to (%d, %d)", who, ev.Position.X, ev.Position.Y)
		}
	case bus.EventTaskAssigned:
		return fmt.Sprintf("%s assigned %s: %s", who, ev.TaskID, ev.TaskName)
	case bus.EventTaskCompleted:
		return fmt.Sprintf("%s completed %s: %s", who, ev.TaskID, ev.Result)
	case bus.EventStateChanged:
		return fmt.Sprintf("%s %s → %s", who, ev.OldState, ev.NewState)
	case bus.EventBroadcast:
		if lc, ok := ev.Lifecycle(); ok {
			return fmt.Sprintf("%s %s", who, lc.Kind)
		}
		return fmt.Sprintf("%s broadcast %s", who, string(ev.Payload))
	}
	return fmt.Sprintf("%s %s", who, ev.Type)
}

// resize fits the event log into the space left under the agent table.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	tableHeight := len(m.agents) + 4
	if len(m.agents) == 0 {
		tableHeight = 5
	}
	m.log.Width = max(m.width-4, 10)
	m.log.Height = max(m.height-tableHeight-7, 3)
	m.input.Width = max(m.width-6, 10)
}

// Close releases the bus subscription.
func (m Model) Close() {
	m.sub.Close()
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, src Source, b *bus.Bus, refresh time.Duration) error {
	m := New(src, b, refresh)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
