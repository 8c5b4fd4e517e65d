package tui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/workspace"
)

type staticOrch struct {
	states []compose.ServiceState
	err    error
}

func (s *staticOrch) ProjectName() string                                          { return "shop" }
func (s *staticOrch) ComposeFilePath() string                                      { return "" }
func (s *staticOrch) Services(ctx context.Context) (*compose.ServiceSet, error)    { return nil, nil }
func (s *staticOrch) Up(ctx context.Context, opts compose.UpOptions) error         { return nil }
func (s *staticOrch) Down(ctx context.Context, removeVolumes bool) error           { return nil }
func (s *staticOrch) Restart(ctx context.Context, service string) error            { return nil }
func (s *staticOrch) Build(ctx context.Context) error                              { return nil }
func (s *staticOrch) IsRunning(ctx context.Context) (bool, error)                  { return true, nil }
func (s *staticOrch) WaitHealthy(ctx context.Context, timeout time.Duration) error { return nil }
func (s *staticOrch) Validate(ctx context.Context, envFile string) error           { return nil }

func (s *staticOrch) ExecInteractive(ctx context.Context, service string) (int, error) {
	return 0, nil
}

func (s *staticOrch) Status(ctx context.Context) ([]compose.ServiceState, error) {
	return s.states, s.err
}

func (s *staticOrch) Logs(ctx context.Context, service string, follow bool, tail int) (string, error) {
	return "", nil
}

func (s *staticOrch) Exec(ctx context.Context, service string, command ...string) (*runner.Result, error) {
	return &runner.Result{}, nil
}

func (s *staticOrch) ExecInput(ctx context.Context, service string, stdin io.Reader, command ...string) (*runner.Result, error) {
	return &runner.Result{}, nil
}

func testModel(orch compose.Orchestrator) Model {
	project := &workspace.Project{Name: "shop", Stack: workspace.StackLaravelVue, Domain: "shop.local"}
	return NewModel(context.Background(), project, orch, time.Second)
}

func TestStatusMsgFillsTable(t *testing.T) {
	m := testModel(&staticOrch{})

	updated, _ := m.Update(statusMsg([]compose.ServiceState{
		{Name: "mysql", Status: "Up 2 minutes (healthy)", Health: "healthy", Running: true},
		{Name: "nginx", Status: "Exited (1)", Running: false},
	}))
	model := updated.(Model)

	view := model.View()
	assert.Contains(t, view, "mysql")
	assert.Contains(t, view, "nginx")
	assert.Contains(t, view, "shop.local")
}

func TestErrMsgShown(t *testing.T) {
	m := testModel(&staticOrch{})

	updated, _ := m.Update(errMsg{err: assert.AnError})
	view := updated.(Model).View()
	assert.Contains(t, view, "Error:")
}

func TestQuitKey(t *testing.T) {
	m := testModel(&staticOrch{})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	model := updated.(Model)

	assert.True(t, model.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "", model.View())
}

func TestLoadStatusCmd(t *testing.T) {
	orch := &staticOrch{states: []compose.ServiceState{{Name: "php", Running: true}}}
	m := testModel(orch)

	msg := m.loadStatus()()
	states, ok := msg.(statusMsg)
	require.True(t, ok)
	require.Len(t, states, 1)
	assert.Equal(t, "php", states[0].Name)
}

func TestServiceIconMapping(t *testing.T) {
	assert.Equal(t, "●", ServiceIcon(true, "healthy"))
	assert.Equal(t, "●", ServiceIcon(true, ""))
	assert.Equal(t, "◐", ServiceIcon(true, "starting"))
	assert.Equal(t, "✗", ServiceIcon(true, "unhealthy"))
	assert.Equal(t, "○", ServiceIcon(false, "healthy"))
}
