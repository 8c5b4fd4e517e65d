// Package git provides git operations via the git CLI.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/localdeck/localdeck/internal/errors"
	"github.com/localdeck/localdeck/internal/runner"
)

// pullTimeout bounds a single fetch or pull against a remote.
const pullTimeout = 5 * time.Minute

// Manager handles git operations for one repository checkout.
type Manager struct {
	repoPath string
	run      runner.Runner
}

// NewManager creates a git manager for the given checkout path.
func NewManager(repoPath string, run runner.Runner) *Manager {
	return &Manager{repoPath: repoPath, run: run}
}

var _ Operations = (*Manager)(nil)

// RepoPath returns the repository path.
func (m *Manager) RepoPath() string {
	return m.repoPath
}

// IsGitRepo checks if the path is a valid git repository.
func (m *Manager) IsGitRepo(ctx context.Context) bool {
	_, err := m.git(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// Clone clones a repository from url into the repo path.
// Uses a temp directory and rename so a failed clone never leaves a
// partial checkout behind.
func (m *Manager) Clone(ctx context.Context, url string) error {
	parentDir := filepath.Dir(m.repoPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tempDir, err := os.MkdirTemp(parentDir, ".clone-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.RemoveAll(tempDir)
		}
	}()

	res, err := m.run.Run(ctx, runner.Spec{
		Name: "git",
		Args: []string{"clone", url, tempDir},
	})
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrGitCloneFailed, stderrOf(res))
	}

	if err := os.Rename(tempDir, m.repoPath); err != nil {
		return fmt.Errorf("failed to move cloned repo to final path: %w", err)
	}

	success = true
	return nil
}

// Pull fast-forwards the checkout from its remote.
func (m *Manager) Pull(ctx context.Context) error {
	res, err := m.run.Run(ctx, runner.Spec{
		Name:    "git",
		Args:    []string{"-C", m.repoPath, "pull", "--ff-only"},
		Timeout: pullTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrGitPullFailed, stderrOf(res))
	}
	return nil
}

// stderrOf returns trimmed stderr, tolerating a nil result.
func stderrOf(res *runner.Result) string {
	if res == nil {
		return ""
	}
	return strings.TrimSpace(res.Stderr)
}

// CurrentCommit returns the full SHA of HEAD.
func (m *Manager) CurrentCommit(ctx context.Context) (string, error) {
	out, err := m.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current commit: %w", err)
	}
	return out, nil
}

// CurrentCommitShort returns the short SHA of HEAD.
func (m *Manager) CurrentCommitShort(ctx context.Context) (string, error) {
	full, err := m.CurrentCommit(ctx)
	if err != nil {
		return "", err
	}
	return ShortSHA(full), nil
}

// ChangedSince returns true when HEAD differs from the given commit.
// An empty or unknown previous commit counts as changed.
func (m *Manager) ChangedSince(ctx context.Context, previous string) (bool, error) {
	if previous == "" || previous == "unknown" {
		return true, nil
	}
	current, err := m.CurrentCommit(ctx)
	if err != nil {
		return false, err
	}
	return !strings.HasPrefix(current, previous), nil
}

// RemoteURL returns the origin remote URL.
func (m *Manager) RemoteURL(ctx context.Context) (string, error) {
	out, err := m.git(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("failed to get remote URL: %w", err)
	}
	return out, nil
}

// git runs a git subcommand against this checkout and returns trimmed stdout.
func (m *Manager) git(ctx context.Context, args ...string) (string, error) {
	res, err := m.run.Run(ctx, runner.Spec{
		Name: "git",
		Args: append([]string{"-C", m.repoPath}, args...),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ShortSHA returns the 7-character short SHA.
func ShortSHA(fullSHA string) string {
	if len(fullSHA) < 7 {
		return fullSHA
	}
	return fullSHA[:7]
}

// CheckInstalled verifies the git CLI is available.
func CheckInstalled() error {
	if !runner.CommandExists("git") {
		return errors.ErrGitNotFound
	}
	return nil
}
