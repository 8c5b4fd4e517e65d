package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/localdeck/localdeck/internal/errors"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), "deploy-history.json"))
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	l := newTestLedger(t)

	first, err := l.Append(DeployRun{Success: true})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	second, err := l.Append(DeployRun{Success: false, Error: "migrations failed"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)
}

func TestIDsSurviveReopening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy-history.json")

	l := NewLedger(path)
	_, err := l.Append(DeployRun{Success: true})
	require.NoError(t, err)
	_, err = l.Append(DeployRun{Success: true})
	require.NoError(t, err)

	// A fresh ledger over the same file continues the sequence.
	reopened := NewLedger(path)
	third, err := reopened.Append(DeployRun{Success: true})
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID)
}

func TestListNewestFirst(t *testing.T) {
	l := newTestLedger(t)
	for i := 0; i < 5; i++ {
		_, err := l.Append(DeployRun{Success: i%2 == 0})
		require.NoError(t, err)
	}

	runs, err := l.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
	assert.Equal(t, 5, runs[0].ID)
	assert.Equal(t, 1, runs[4].ID)

	limited, err := l.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 5, limited[0].ID)
	assert.Equal(t, 4, limited[1].ID)
}

func TestGet(t *testing.T) {
	l := newTestLedger(t)
	stored, err := l.Append(DeployRun{
		Success:         true,
		DurationSeconds: 42.5,
		Backend:         RevisionPair{Before: "abc1234", After: "def5678"},
		Changes:         []string{"backend: abc1234 -> def5678"},
		Flags:           []string{"--seed"},
		Timestamp:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	got, err := l.Get(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	_, err = l.Get(999)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
}

func TestLast(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Last()
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)

	_, err = l.Append(DeployRun{Success: true})
	require.NoError(t, err)
	_, err = l.Append(DeployRun{Success: false})
	require.NoError(t, err)

	last, err := l.Last()
	require.NoError(t, err)
	assert.Equal(t, 2, last.ID)
	assert.False(t, last.Success)
}

func TestEmptyLedgerLists(t *testing.T) {
	l := newTestLedger(t)
	runs, err := l.List(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
