// Package runner executes external commands for localdeck.
//
// Every interaction with the container runtime, git, and the database
// clients goes through a Runner so that higher layers can be tested
// against a fake and so that failures carry the command line, exit code,
// and captured output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxCapturedOutput bounds the stderr carried inside a CommandError.
const maxCapturedOutput = 2000

// Spec describes one external command invocation.
type Spec struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // appended to the parent environment
	Stdin   io.Reader
	Stdout  io.Writer // if set, stdout streams here instead of being captured
	Timeout time.Duration
}

// Result holds the outcome of a completed command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// CommandError is returned when a command exits non-zero. It carries
// enough context to diagnose the failure without re-running verbosely.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string // stderr, truncated
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, e.Output)
}

// Runner runs external commands.
type Runner interface {
	// Run executes the command and returns its result. A non-zero exit
	// returns both the result and a *CommandError.
	Run(ctx context.Context, spec Spec) (*Result, error)

	// RunInteractive attaches the command to the parent terminal and
	// returns its exit code. Used for interactive shells and log follow.
	RunInteractive(ctx context.Context, spec Spec) (int, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// New returns a Runner backed by os/exec.
func New() *ExecRunner {
	return &ExecRunner{}
}

var _ Runner = (*ExecRunner)(nil)

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	cancel := func() {}
	if spec.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdin = spec.Stdin

	stdout, stderr := NewSafeBuffer(), NewSafeBuffer()
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	} else {
		cmd.Stdout = stdout
	}
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("command %q timed out after %v: %w",
				commandLine(spec), spec.Timeout, context.DeadlineExceeded)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &CommandError{
				Command:  commandLine(spec),
				ExitCode: res.ExitCode,
				Output:   truncate(res.Stderr, maxCapturedOutput),
			}
		}
		return res, fmt.Errorf("failed to run %q: %w", commandLine(spec), err)
	}

	return res, nil
}

// RunInteractive implements Runner.
func (r *ExecRunner) RunInteractive(ctx context.Context, spec Spec) (int, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to run %q: %w", commandLine(spec), err)
	}
	return 0, nil
}

// CommandExists reports whether a command is resolvable on PATH.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandLine(spec Spec) string {
	return strings.Join(append([]string{spec.Name}, spec.Args...), " ")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
