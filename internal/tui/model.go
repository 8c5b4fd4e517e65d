package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/workspace"
)

// Model is the Bubble Tea model for `status --watch`: one project, its
// services refreshed on a fixed interval.
type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	project     *workspace.Project
	orch        compose.Orchestrator
	table       table.Model
	refresh     time.Duration
	lastRefresh time.Time
	err         error
	quitting    bool
	width       int
}

// KeyMap defines the keybindings.
type KeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

var keys = KeyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type tickMsg time.Time
type statusMsg []compose.ServiceState
type errMsg struct{ err error }

// NewModel creates a watch model for the active project.
func NewModel(ctx context.Context, project *workspace.Project, orch compose.Orchestrator, refresh time.Duration) Model {
	ctx, cancel := context.WithCancel(ctx)

	columns := []table.Column{
		{Title: "SERVICE", Width: 16},
		{Title: "STATUS", Width: 28},
		{Title: "HEALTH", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("15")).
		Background(ColorPrimary).
		Bold(false)
	t.SetStyles(s)

	return Model{
		ctx:     ctx,
		cancel:  cancel,
		project: project,
		orch:    orch,
		table:   t,
		refresh: refresh,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadStatus(), m.tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.cancel()
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, m.loadStatus()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width - 4)

	case tickMsg:
		return m, tea.Batch(m.loadStatus(), m.tick())

	case statusMsg:
		m.err = nil
		m.lastRefresh = time.Now()
		m.setRows(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s string
	s += TitleStyle.Render(fmt.Sprintf("localdeck: %s", m.project.Name)) + "\n\n"
	s += LabelStyle.Render("Stack:") + ValueStyle.Render(string(m.project.Stack)) + "\n"
	s += LabelStyle.Render("Domain:") + ValueStyle.Render(m.project.Domain) + "\n\n"

	if m.err != nil {
		s += ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
	}
	s += m.table.View() + "\n"

	s += HelpStyle.Render(fmt.Sprintf(
		"[r] Refresh  [q] Quit  |  Last refresh: %s",
		m.lastRefresh.Format("15:04:05"),
	))
	return s
}

func (m *Model) setRows(states []compose.ServiceState) {
	rows := make([]table.Row, len(states))
	for i, svc := range states {
		icon := ServiceIcon(svc.Running, svc.Health)
		health := svc.Health
		if health == "" {
			health = "-"
		}
		rows[i] = table.Row{svc.Name, icon + " " + svc.Status, health}
	}
	m.table.SetRows(rows)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadStatus() tea.Cmd {
	return func() tea.Msg {
		states, err := m.orch.Status(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(states)
	}
}
