package ports

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdeck/localdeck/internal/config"
)

// grabPort binds an ephemeral port and returns it still held.
func grabPort(t *testing.T) (int, net.Listener) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return l.Addr().(*net.TCPAddr).Port, l
}

func TestAvailable(t *testing.T) {
	port, l := grabPort(t)
	defer l.Close()

	assert.False(t, Available(port))

	l.Close()
	assert.True(t, Available(port))
}

func TestCheckAllAndConflicts(t *testing.T) {
	busy, l := grabPort(t)
	defer l.Close()

	free, fl := grabPort(t)
	fl.Close()

	p := config.Ports{HTTP: busy, HTTPS: free, Backend: free, MySQL: free}
	checks := CheckAll(p)
	require.Len(t, checks, 4)

	byName := map[string]bool{}
	for _, c := range checks {
		byName[c.Name] = c.Available
	}
	assert.False(t, byName["http"])
	assert.True(t, byName["https"])
	assert.True(t, byName["mysql"])

	conflicts := Conflicts(p)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0], "http")
}

func TestDatabasePortOmittedWhenZero(t *testing.T) {
	free, fl := grabPort(t)
	fl.Close()

	p := config.Ports{HTTP: free, HTTPS: free, Backend: free, Postgres: free}
	checks := CheckAll(p)
	require.Len(t, checks, 4)
	names := map[string]bool{}
	for _, c := range checks {
		names[c.Name] = true
	}
	assert.True(t, names["postgres"])
	assert.False(t, names["mysql"])
}
