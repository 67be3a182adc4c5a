package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxWatchEvents = 500

// EventKind classifies a watched compositor event.
type EventKind int

const (
	KindGlobal EventKind = iota
	KindOutput
	KindSeat
	KindSelection
	KindError
)

func (k EventKind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindOutput:
		return "output"
	case KindSeat:
		return "seat"
	case KindSelection:
		return "selection"
	case KindError:
		return "error"
	}
	return "unknown"
}

// EventMsg is one line of the event log.
type EventMsg struct {
	Time time.Time
	Kind EventKind
	Text string
}

// SnapshotMsg replaces the output and seat panels.
type SnapshotMsg struct {
	Outputs []string
	Seats   []string
}

// ConnectedMsg reports the compositor connection.
type ConnectedMsg struct {
	Display string
	Globals int
}

// DisconnectedMsg ends the session, Err is nil on a clean shutdown.
type DisconnectedMsg struct {
	Err error
}

// WatchModel shows live output, seat and selection events.
type WatchModel struct {
	status   *StatusBar
	viewport viewport.Model
	events   []EventMsg
	outputs  []string
	seats    []string
	width    int
	height   int
	ready    bool
	err      error
	stop     func()
}

// NewWatchModel creates the watch model. stop runs when the user quits.
func NewWatchModel(stop func()) *WatchModel {
	s := NewStatusBar("waykit watch")
	s.Status = "connecting"
	return &WatchModel{status: s, stop: stop}
}

// Init implements tea.Model
func (m *WatchModel) Init() tea.Cmd {
	return m.status.Init()
}

// Update implements tea.Model
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.status, _ = m.status.Update(msg)
		m.resize()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.stop != nil {
				m.stop()
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.status, cmd = m.status.Update(msg)
		return m, cmd

	case ConnectedMsg:
		m.status.Connected = true
		m.status.Status = fmt.Sprintf("%s, %d globals", msg.Display, msg.Globals)

	case SnapshotMsg:
		m.outputs = msg.Outputs
		m.seats = msg.Seats
		m.resize()

	case EventMsg:
		m.addEvent(msg)

	case DisconnectedMsg:
		m.status.Connected = false
		m.status.Status = "disconnected"
		if msg.Err != nil {
			m.err = msg.Err
			m.addEvent(EventMsg{Time: time.Now(), Kind: KindError, Text: msg.Err.Error()})
		}
		return m, tea.Quit
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *WatchModel) addEvent(e EventMsg) {
	m.events = append(m.events, e)
	if len(m.events) > maxWatchEvents {
		m.events = m.events[len(m.events)-maxWatchEvents:]
	}
	if m.ready {
		m.viewport.SetContent(m.renderEvents())
		m.viewport.GotoBottom()
	}
}

// resize fits the viewport below the status bar and panels.
func (m *WatchModel) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	used := lipgloss.Height(m.status.View()) + lipgloss.Height(m.renderPanels()) + 3
	h := m.height - used
	if h < 3 {
		h = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
	m.viewport.SetContent(m.renderEvents())
	m.viewport.GotoBottom()
}

// Err returns the error that ended the session.
func (m *WatchModel) Err() error {
	return m.err
}

// Events returns the logged events, oldest first.
func (m *WatchModel) Events() []EventMsg {
	return m.events
}

func (m *WatchModel) renderPanels() string {
	half := m.width/2 - 2
	if half < 20 {
		half = 0
	}
	outputs := &InfoPanel{Title: "Outputs", Content: m.outputs, Empty: "none", Width: half}
	seats := &InfoPanel{Title: "Seats", Content: m.seats, Empty: "none", Width: half}
	return lipgloss.JoinHorizontal(lipgloss.Top, outputs.View(), seats.View())
}

func (m *WatchModel) renderEvents() string {
	if len(m.events) == 0 {
		return MutedStyle.Render("waiting for events...")
	}
	lines := make([]string, len(m.events))
	for i, e := range m.events {
		lines[i] = FormatEvent(e)
	}
	return strings.Join(lines, "\n")
}

// View implements tea.Model
func (m *WatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.status.View())
	b.WriteString("\n")
	b.WriteString(m.renderPanels())
	b.WriteString("\n")
	b.WriteString(CreateSeparator(m.width, ""))
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderEvents())
	}
	b.WriteString("\n")
	controls := SubtleStyle.Render(FormatControl("q", "quit") + "  " + FormatControl("↑/↓", "scroll"))
	if m.width > 0 {
		controls = Center(m.width, controls)
	}
	b.WriteString(controls)
	return b.String()
}

// FormatEvent renders an event log line.
func FormatEvent(e EventMsg) string {
	kind := lipgloss.NewStyle().Bold(true).Width(9)
	switch e.Kind {
	case KindError:
		kind = kind.Foreground(ColorError)
	case KindOutput:
		kind = kind.Foreground(ColorInfo)
	case KindSeat:
		kind = kind.Foreground(ColorSuccess)
	case KindSelection:
		kind = kind.Foreground(ColorSecondary)
	default:
		kind = kind.Foreground(ColorSubtle)
	}
	timestamp := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(e.Time.Format("15:04:05"))
	return fmt.Sprintf("%s %s %s", timestamp, kind.Render(e.Kind.String()), e.Text)
}
