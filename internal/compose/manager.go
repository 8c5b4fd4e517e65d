// Package compose provides docker compose orchestration via the docker CLI.
package compose

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/localdeck/localdeck/internal/errors"
	"github.com/localdeck/localdeck/internal/runner"
)

// healthPollInterval is how often WaitHealthy re-checks service state.
const healthPollInterval = 2 * time.Second

// Manager handles docker compose operations for one project.
type Manager struct {
	workingDir   string
	composeFile  string
	projectName  string
	run          runner.Runner
	pollInterval time.Duration
}

// ServiceState is the observed state of a running compose service.
type ServiceState struct {
	Name    string
	Status  string
	Health  string
	Running bool
}

// UpOptions controls how services are brought up.
type UpOptions struct {
	Rebuild bool   // pass --build to rebuild images
	EnvFile string // optional --env-file path
}

// NewManager creates a compose manager rooted at workingDir.
func NewManager(workingDir, composeFile, projectName string, run runner.Runner) *Manager {
	return &Manager{
		workingDir:   workingDir,
		composeFile:  composeFile,
		projectName:  projectName,
		run:          run,
		pollInterval: healthPollInterval,
	}
}

var _ Orchestrator = (*Manager)(nil)

// ProjectName returns the compose project name.
func (m *Manager) ProjectName() string {
	return m.projectName
}

// ComposeFilePath returns the full path to the compose file.
func (m *Manager) ComposeFilePath() string {
	return filepath.Join(m.workingDir, m.composeFile)
}

// Services parses the compose file and returns its declared service set.
func (m *Manager) Services(ctx context.Context) (*ServiceSet, error) {
	return LoadServices(ctx, m.ComposeFilePath())
}

// Up starts the compose services detached.
func (m *Manager) Up(ctx context.Context, opts UpOptions) error {
	args := m.baseArgs()
	if opts.EnvFile != "" {
		args = append(args, "--env-file", opts.EnvFile)
	}
	args = append(args, "up", "-d", "--remove-orphans")
	if opts.Rebuild {
		args = append(args, "--build")
	}

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compose up cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("compose up failed: %w: %s", err, errLine(res))
	}
	return nil
}

// Down stops and removes compose services.
func (m *Manager) Down(ctx context.Context, removeVolumes bool) error {
	args := append(m.baseArgs(), "down")
	if removeVolumes {
		args = append(args, "-v")
	}

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compose down cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("compose down failed: %w: %s", err, errLine(res))
	}
	return nil
}

// Restart restarts one service, or all services when service is empty.
// The service name is checked against the compose file first.
func (m *Manager) Restart(ctx context.Context, service string) error {
	args := append(m.baseArgs(), "restart")
	if service != "" {
		set, err := m.Services(ctx)
		if err != nil {
			return err
		}
		if !set.Has(service) {
			return fmt.Errorf("%w: %q (valid services: %s)",
				errors.ErrServiceNotFound, service, strings.Join(set.Names(), ", "))
		}
		args = append(args, service)
	}

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		return fmt.Errorf("compose restart failed: %w: %s", err, errLine(res))
	}
	return nil
}

// Build rebuilds service images without starting them.
func (m *Manager) Build(ctx context.Context) error {
	args := append(m.baseArgs(), "build")

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compose build cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("compose build failed: %w: %s", err, errLine(res))
	}
	return nil
}

// Status returns the observed state of each service container.
func (m *Manager) Status(ctx context.Context) ([]ServiceState, error) {
	args := append(m.baseArgs(), "ps", "-a", "--format", "{{.Service}}\t{{.Status}}\t{{.Health}}")

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		return nil, fmt.Errorf("compose ps failed: %w", err)
	}

	var states []ServiceState
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		state := ServiceState{Name: parts[0], Status: parts[1]}
		if len(parts) >= 3 {
			state.Health = parts[2]
		}
		status := strings.ToLower(state.Status)
		state.Running = strings.Contains(status, "up") || strings.Contains(status, "running")
		states = append(states, state)
	}
	return states, nil
}

// IsRunning checks whether any service container is currently running.
func (m *Manager) IsRunning(ctx context.Context) (bool, error) {
	states, err := m.Status(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range states {
		if s.Running {
			return true, nil
		}
	}
	return false, nil
}

// WaitHealthy polls until every service with a declared healthcheck
// reports healthy and every other service is running, or the timeout
// elapses. The timeout error names the services that never came up.
func (m *Manager) WaitHealthy(ctx context.Context, timeout time.Duration) error {
	set, err := m.Services(ctx)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var pending []string
	for {
		states, err := m.Status(ctx)
		if err != nil {
			return err
		}
		pending = unhealthyServices(set, states)
		if len(pending) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("services did not become healthy within %s: %s",
				timeout, strings.Join(pending, ", "))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// unhealthyServices returns declared services not yet healthy, sorted.
// A healthchecked service must report healthy; any other service only
// needs to be running.
func unhealthyServices(set *ServiceSet, states []ServiceState) []string {
	byName := make(map[string]ServiceState, len(states))
	for _, s := range states {
		byName[s.Name] = s
	}

	var pending []string
	for _, name := range set.Names() {
		spec, _ := set.Get(name)
		state, up := byName[name]
		switch {
		case !up || !state.Running:
			pending = append(pending, name)
		case spec.HasHealthcheck && strings.ToLower(state.Health) != "healthy":
			pending = append(pending, name)
		}
	}
	return pending
}

// Logs retrieves logs from services. When follow is true the logs are
// streamed to the caller's terminal until interrupted.
func (m *Manager) Logs(ctx context.Context, service string, follow bool, tail int) (string, error) {
	args := append(m.baseArgs(), "logs")
	if tail > 0 {
		args = append(args, "--tail", fmt.Sprintf("%d", tail))
	}
	if follow {
		args = append(args, "-f")
	}
	if service != "" {
		args = append(args, service)
	}

	if follow {
		_, err := m.run.RunInteractive(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
		return "", err
	}

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		return "", fmt.Errorf("compose logs failed: %w", err)
	}
	return res.Stdout, nil
}

// Exec runs a command inside a service container and captures its output.
func (m *Manager) Exec(ctx context.Context, service string, command ...string) (*runner.Result, error) {
	args := append(m.baseArgs(), "exec", "-T", service)
	args = append(args, command...)

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		return res, fmt.Errorf("exec in %s failed: %w", service, err)
	}
	return res, nil
}

// ExecInput runs a command inside a service container with the given
// stdin, capturing output. Used to stream database dumps back in.
func (m *Manager) ExecInput(ctx context.Context, service string, stdin io.Reader, command ...string) (*runner.Result, error) {
	args := append(m.baseArgs(), "exec", "-T", service)
	args = append(args, command...)

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir, Stdin: stdin})
	if err != nil {
		return res, fmt.Errorf("exec in %s failed: %w", service, err)
	}
	return res, nil
}

// ExecInteractive opens an interactive shell inside a service container
// and returns the session's exit code. Tries bash first and falls back
// to sh for slim images; exit codes 126/127 mean the shell binary is
// missing, anything else is the session's own exit status.
func (m *Manager) ExecInteractive(ctx context.Context, service string) (int, error) {
	states, err := m.Status(ctx)
	if err != nil {
		return -1, err
	}
	running := false
	for _, s := range states {
		if s.Name == service && s.Running {
			running = true
			break
		}
	}
	if !running {
		return -1, fmt.Errorf("%w: %s", errors.ErrServiceNotRunning, service)
	}

	var code int
	for _, shell := range []string{"/bin/bash", "/bin/sh"} {
		args := append(m.baseArgs(), "exec", service, shell)
		code, err = m.run.RunInteractive(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
		if err != nil {
			continue
		}
		if code == 126 || code == 127 {
			continue
		}
		return code, nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to open shell in %s: %w", service, err)
	}
	return code, fmt.Errorf("no usable shell found in %s", service)
}

// Validate checks the compose file with docker compose config.
func (m *Manager) Validate(ctx context.Context, envFile string) error {
	args := m.baseArgs()
	if envFile != "" {
		args = append(args, "--env-file", envFile)
	}
	args = append(args, "config", "--quiet")

	res, err := m.run.Run(ctx, runner.Spec{Name: "docker", Args: args, Dir: m.workingDir})
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrComposeInvalid, errLine(res))
	}
	return nil
}

// baseArgs returns the base docker compose arguments.
func (m *Manager) baseArgs() []string {
	return []string{"compose", "-p", m.projectName, "-f", m.composeFile}
}

// errLine extracts the final stderr line from a result, tolerating nil.
func errLine(res *runner.Result) string {
	if res == nil {
		return ""
	}
	return lastLine(res.Stderr)
}

// lastLine returns the final non-empty line of output, for compact errors.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// CheckInstalled verifies docker compose is available.
func CheckInstalled(ctx context.Context, run runner.Runner) error {
	if _, err := run.Run(ctx, runner.Spec{Name: "docker", Args: []string{"compose", "version"}}); err != nil {
		return errors.ErrComposeNotFound
	}
	return nil
}
