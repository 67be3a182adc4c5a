package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusBar shows a title, a spinner and the connection status.
type StatusBar struct {
	Width       int
	Title       string
	Status      string
	Connected   bool
	ShowSpinner bool
	spinner     spinner.Model
}

// NewStatusBar creates a new status bar
func NewStatusBar(title string) *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerDot,
		FPS:    time.Second / 10,
	}
	s.Style = SpinnerStyle

	return &StatusBar{
		Title:       title,
		ShowSpinner: true,
		spinner:     s,
	}
}

// Init implements tea.Model
func (s *StatusBar) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update implements tea.Model
func (s *StatusBar) Update(msg tea.Msg) (*StatusBar, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	case tea.WindowSizeMsg:
		s.Width = msg.Width
	}
	return s, nil
}

// View renders the status bar
func (s *StatusBar) View() string {
	title := TitleStyle.Render(s.Title)

	status := s.Status
	if s.ShowSpinner && s.Connected {
		status = s.spinner.View() + " " + s.Status
	}
	formatted := FormatStatus(s.Connected, status)

	gap := s.Width - lipgloss.Width(title) - lipgloss.Width(formatted) - 4
	if gap < 1 {
		gap = 1
	}
	line := title + strings.Repeat(" ", gap) + formatted
	if s.Width <= 0 {
		return BoxStyle.Render(line)
	}
	return BoxStyle.Width(s.Width - 2).Render(line)
}

// InfoPanel is a titled box of lines.
type InfoPanel struct {
	Title   string
	Content []string
	Empty   string
	Width   int
}

// View renders the info panel
func (p *InfoPanel) View() string {
	var b strings.Builder

	if p.Title != "" {
		b.WriteString(SubheaderStyle.Render(p.Title))
		b.WriteString("\n")
	}
	if len(p.Content) == 0 && p.Empty != "" {
		b.WriteString(MutedStyle.Render(p.Empty))
	}
	for i, line := range p.Content {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(TextStyle.Render(line))
	}

	style := BoxStyle
	if p.Width > 0 {
		style = style.Width(p.Width)
	}
	return style.Render(b.String())
}
