// Package lock provides file-based locking with PID-based stale detection.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/localdeck/localdeck/internal/errors"
)

// DeployLock serializes operations that rewrite the project trees:
// the deploy pipeline and snapshot restore both take it.
const DeployLock = "deploy"

// Lock is a held pipeline lock.
type Lock struct {
	flock    *flock.Flock
	pidFile  string
	lockPath string
	name     string
}

// Manager hands out named locks under a data directory. The pipeline
// takes DeployLock so only one deployment runs at a time; the same
// lock guards restore, which also rewrites the project trees.
type Manager struct {
	lockDir string
}

// NewManager creates a lock manager rooted at dataDir.
func NewManager(dataDir string) (*Manager, error) {
	lockDir := filepath.Join(dataDir, "locks")
	if err := os.MkdirAll(lockDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Manager{lockDir: lockDir}, nil
}

// Acquire takes the named lock, failing fast when another live process
// holds it. Stale locks left by dead processes are cleared first.
func (m *Manager) Acquire(ctx context.Context, name string) (*Lock, error) {
	lockPath := filepath.Join(m.lockDir, name+".lock")
	pidFile := filepath.Join(m.lockDir, name+".pid")

	m.cleanStaleLock(pidFile, lockPath)

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		if pid, err := readPIDFile(pidFile); err == nil {
			return nil, fmt.Errorf("%w: held by PID %d", errors.ErrPipelineRunning, pid)
		}
		return nil, errors.ErrPipelineRunning
	}

	if err := writePIDFile(pidFile); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &Lock{flock: fl, pidFile: pidFile, lockPath: lockPath, name: name}, nil
}

// AcquireWait blocks until the named lock is acquired or ctx is done.
func (m *Manager) AcquireWait(ctx context.Context, name string) (*Lock, error) {
	lockPath := filepath.Join(m.lockDir, name+".lock")
	pidFile := filepath.Join(m.lockDir, name+".pid")

	m.cleanStaleLock(pidFile, lockPath)

	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, errors.ErrPipelineRunning
	}

	if err := writePIDFile(pidFile); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &Lock{flock: fl, pidFile: pidFile, lockPath: lockPath, name: name}, nil
}

// IsLocked reports whether the named lock is held, and by which PID
// when known.
func (m *Manager) IsLocked(name string) (bool, int, error) {
	lockPath := filepath.Join(m.lockDir, name+".lock")
	pidFile := filepath.Join(m.lockDir, name+".pid")

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check lock: %w", err)
	}
	if locked {
		fl.Unlock()
		return false, 0, nil
	}

	pid, err := readPIDFile(pidFile)
	if err != nil {
		return true, 0, nil
	}
	return true, pid, nil
}

// cleanStaleLock removes lock files left behind by a dead process.
func (m *Manager) cleanStaleLock(pidFile, lockPath string) {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return
	}
	if isProcessRunning(pid) {
		return
	}
	os.Remove(pidFile)
	os.Remove(lockPath)
}

// Release releases the lock and removes its files.
func (l *Lock) Release() error {
	os.Remove(l.pidFile)
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	os.Remove(l.lockPath)
	return nil
}

// Name returns the lock name.
func (l *Lock) Name() string {
	return l.name
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// isProcessRunning checks whether a process with the given PID exists
// by sending it signal 0.
func isProcessRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	errStr := err.Error()
	if strings.Contains(errStr, "process already finished") ||
		strings.Contains(errStr, "no such process") {
		return false
	}
	// EPERM means the process exists but belongs to another user.
	return true
}
