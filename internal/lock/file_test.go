package lock

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/localdeck/localdeck/internal/errors"
)

func TestAcquireAndRelease(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	l, err := m.Acquire(context.Background(), "deploy")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "deploy", l.Name())

	held, pid, err := m.IsLocked("deploy")
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, l.Release())

	held, _, err = m.IsLocked("deploy")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestSecondAcquireFailsFast(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	l, err := m.Acquire(context.Background(), "deploy")
	require.NoError(t, err)
	defer l.Release()

	_, err = m.Acquire(context.Background(), "deploy")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPipelineRunning)
}

func TestIndependentNames(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	deploy, err := m.Acquire(context.Background(), "deploy")
	require.NoError(t, err)
	defer deploy.Release()

	backup, err := m.Acquire(context.Background(), "backup")
	require.NoError(t, err)
	defer backup.Release()
}

func TestStaleLockIsCleared(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	// Simulate a lock left behind by a dead process. PID 1 is always
	// alive, so use a PID that cannot exist.
	lockDir := filepath.Join(dir, "locks")
	require.NoError(t, os.WriteFile(filepath.Join(lockDir, "deploy.pid"), []byte(strconv.Itoa(1<<22+12345)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(lockDir, "deploy.lock"), nil, 0644))

	l, err := m.Acquire(context.Background(), "deploy")
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Release()
}

func TestReleaseIsIdempotentOnFiles(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	l, err := m.Acquire(context.Background(), "deploy")
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// Reacquire after release works.
	l2, err := m.Acquire(context.Background(), "deploy")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
