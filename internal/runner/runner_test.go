package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Run(t *testing.T) {
	r := New()
	ctx := context.Background()

	t.Run("captures stdout", func(t *testing.T) {
		res, err := r.Run(ctx, Spec{Name: "sh", Args: []string{"-c", "echo hello"}})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello\n", res.Stdout)
	})

	t.Run("non-zero exit yields CommandError", func(t *testing.T) {
		res, err := r.Run(ctx, Spec{Name: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}})
		require.Error(t, err)

		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 3, cmdErr.ExitCode)
		assert.Contains(t, cmdErr.Output, "oops")
		assert.Equal(t, 3, res.ExitCode)
	})

	t.Run("timeout surfaces deadline exceeded", func(t *testing.T) {
		_, err := r.Run(ctx, Spec{
			Name:    "sleep",
			Args:    []string{"5"},
			Timeout: 50 * time.Millisecond,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("runs in working directory", func(t *testing.T) {
		dir := t.TempDir()
		res, err := r.Run(ctx, Spec{Name: "pwd", Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, strings.TrimSpace(res.Stdout))
	})

	t.Run("missing binary returns plain error", func(t *testing.T) {
		_, err := r.Run(ctx, Spec{Name: "definitely-not-a-command-xyz"})
		require.Error(t, err)

		var cmdErr *CommandError
		assert.False(t, errors.As(err, &cmdErr))
	})
}

func TestCommandError_Error(t *testing.T) {
	e := &CommandError{Command: "git pull", ExitCode: 128, Output: "fatal: not a repo"}
	assert.Contains(t, e.Error(), "git pull")
	assert.Contains(t, e.Error(), "128")
	assert.Contains(t, e.Error(), "fatal: not a repo")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxCapturedOutput+500)
	out := truncate(long, maxCapturedOutput)
	assert.Len(t, out, maxCapturedOutput+len("... (truncated)"))
	assert.True(t, strings.HasSuffix(out, "(truncated)"))
}

func TestCommandExists(t *testing.T) {
	assert.True(t, CommandExists("sh"))
	assert.False(t, CommandExists("definitely-not-a-command-xyz"))
}

func TestSafeBuffer_ConcurrentWrites(t *testing.T) {
	buf := NewSafeBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf.Write([]byte("a"))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, buf.String(), 1000)

	buf.Reset()
	assert.Empty(t, buf.String())
}
