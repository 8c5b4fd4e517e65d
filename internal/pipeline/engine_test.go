package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdeck/localdeck/internal/backup"
	"github.com/localdeck/localdeck/internal/compose"
	apperrors "github.com/localdeck/localdeck/internal/errors"
	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/history"
	"github.com/localdeck/localdeck/internal/lock"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/workspace"
)

// fakeGit simulates a checkout whose Pull advances HEAD.
type fakeGit struct {
	path    string
	rev     string
	nextRev string
	pullErr error
	pulled  bool
}

func (g *fakeGit) RepoPath() string                            { return g.path }
func (g *fakeGit) IsGitRepo(ctx context.Context) bool          { return true }
func (g *fakeGit) Clone(ctx context.Context, url string) error { return nil }

func (g *fakeGit) Pull(ctx context.Context) error {
	if g.pullErr != nil {
		return g.pullErr
	}
	g.pulled = true
	if g.nextRev != "" {
		g.rev = g.nextRev
	}
	return nil
}

func (g *fakeGit) CurrentCommit(ctx context.Context) (string, error) { return g.rev, nil }

func (g *fakeGit) CurrentCommitShort(ctx context.Context) (string, error) {
	return git.ShortSHA(g.rev), nil
}

func (g *fakeGit) ChangedSince(ctx context.Context, previous string) (bool, error) {
	return g.rev != previous, nil
}

func (g *fakeGit) RemoteURL(ctx context.Context) (string, error) { return "", nil }

// fakeController records lifecycle and exec calls.
type fakeController struct {
	downVolumes []bool
	upCalls     int
	waitErr     error
	execCmds    [][]string
	execErrFor  string // command keyword that should fail
}

func (f *fakeController) ProjectName() string                                 { return "test" }
func (f *fakeController) ComposeFilePath() string                             { return "" }
func (f *fakeController) Build(ctx context.Context) error                     { return nil }
func (f *fakeController) Restart(ctx context.Context, service string) error   { return nil }
func (f *fakeController) IsRunning(ctx context.Context) (bool, error)         { return true, nil }
func (f *fakeController) Validate(ctx context.Context, envFile string) error  { return nil }
func (f *fakeController) ExecInteractive(ctx context.Context, service string) (int, error) {
	return 0, nil
}
func (f *fakeController) Services(ctx context.Context) (*compose.ServiceSet, error) {
	return nil, nil
}
func (f *fakeController) Status(ctx context.Context) ([]compose.ServiceState, error) {
	return nil, nil
}
func (f *fakeController) Logs(ctx context.Context, service string, follow bool, tail int) (string, error) {
	return "", nil
}
func (f *fakeController) ExecInput(ctx context.Context, service string, stdin io.Reader, command ...string) (*runner.Result, error) {
	return &runner.Result{}, nil
}

func (f *fakeController) Up(ctx context.Context, opts compose.UpOptions) error {
	f.upCalls++
	return nil
}

func (f *fakeController) Down(ctx context.Context, removeVolumes bool) error {
	f.downVolumes = append(f.downVolumes, removeVolumes)
	return nil
}

func (f *fakeController) WaitHealthy(ctx context.Context, timeout time.Duration) error {
	return f.waitErr
}

func (f *fakeController) Exec(ctx context.Context, service string, command ...string) (*runner.Result, error) {
	f.execCmds = append(f.execCmds, append([]string{service}, command...))
	for _, c := range command {
		if f.execErrFor != "" && strings.Contains(c, f.execErrFor) {
			return &runner.Result{Stderr: "exec failed", ExitCode: 1}, &runner.CommandError{Command: strings.Join(command, " "), ExitCode: 1}
		}
	}
	return &runner.Result{}, nil
}

// fakeArchiver records backup requests.
type fakeArchiver struct {
	created   []string
	createErr error
}

func (f *fakeArchiver) Create(ctx context.Context, name string, includeDB bool) (backup.Snapshot, error) {
	if f.createErr != nil {
		return backup.Snapshot{}, f.createErr
	}
	f.created = append(f.created, name)
	return backup.Snapshot{ID: "20260828_120000_" + name}, nil
}

func (f *fakeArchiver) List() ([]backup.Snapshot, error)       { return nil, nil }
func (f *fakeArchiver) Get(id string) (backup.Snapshot, error) { return backup.Snapshot{}, nil }
func (f *fakeArchiver) Restore(ctx context.Context, id string, includeDB bool) error {
	return nil
}
func (f *fakeArchiver) Delete(id string) error           { return nil }
func (f *fakeArchiver) Prune(keep int) ([]string, error) { return nil, nil }

// hostRunner records host-side commands (composer, npm, mvnw).
type hostRunner struct {
	commands []string
	failOn   string
}

func (h *hostRunner) Run(ctx context.Context, spec runner.Spec) (*runner.Result, error) {
	cmd := spec.Name + " " + strings.Join(spec.Args, " ")
	h.commands = append(h.commands, cmd)
	if h.failOn != "" && strings.Contains(cmd, h.failOn) {
		return &runner.Result{Stderr: "command failed", ExitCode: 1}, &runner.CommandError{Command: cmd, ExitCode: 1}
	}
	return &runner.Result{}, nil
}

func (h *hostRunner) RunInteractive(ctx context.Context, spec runner.Spec) (int, error) {
	return 0, nil
}

type testRig struct {
	engine   *Engine
	ws       *workspace.Workspace
	orch     *fakeController
	archiver *fakeArchiver
	host     *hostRunner
	backend  *fakeGit
	frontend *fakeGit
	ledger   *history.Ledger
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	root := t.TempDir()
	ws := workspace.New(filepath.Join(root, "active-project"))

	project := &workspace.Project{
		Name:  "shop",
		Stack: workspace.StackLaravelVue,
		Database: workspace.Database{
			Engine: "mysql",
			Name:   "shop",
			User:   "shop",
		},
	}
	require.NoError(t, ws.Save(project))
	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "docker-compose.yml"), []byte("services: {}\n"), 0644))
	require.NoError(t, os.MkdirAll(ws.BackendDir(), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(ws.FrontendDir(), "dist"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.FrontendDir(), "dist", "index.html"), []byte("<html>"), 0644))

	locks, err := lock.NewManager(root)
	require.NoError(t, err)

	rig := &testRig{
		ws:       ws,
		orch:     &fakeController{},
		archiver: &fakeArchiver{},
		host:     &hostRunner{},
		backend:  &fakeGit{path: ws.BackendDir(), rev: "aaaaaaa1111", nextRev: "bbbbbbb2222"},
		frontend: &fakeGit{path: ws.FrontendDir(), rev: "ccccccc3333", nextRev: "ddddddd4444"},
		ledger:   history.NewLedger(ws.HistoryFile()),
	}

	rig.engine = NewEngine(ws, rig.orch, rig.archiver, rig.ledger, locks, rig.host)
	rig.engine.gitFor = func(path string) git.Operations {
		if path == ws.BackendDir() {
			return rig.backend
		}
		return rig.frontend
	}
	return rig
}

func TestFullRunSucceeds(t *testing.T) {
	rig := newRig(t)

	run, err := rig.engine.Run(context.Background(), Options{Seed: true})
	require.NoError(t, err)

	assert.True(t, run.Success)
	assert.Equal(t, 1, run.ID)
	assert.Equal(t, "aaaaaaa", run.Backend.Before)
	assert.Equal(t, "bbbbbbb", run.Backend.After)
	assert.Equal(t, "ddddddd", run.Frontend.After)
	assert.Len(t, run.Changes, 2)
	assert.Empty(t, run.Warnings)

	// Host-side installs and build ran for the changed trees.
	joined := strings.Join(rig.host.commands, "\n")
	assert.Contains(t, joined, "composer install")
	assert.Contains(t, joined, "npm install")
	assert.Contains(t, joined, "npm run build")

	// Frontend bundle landed in the Laravel web root.
	assert.FileExists(t, filepath.Join(rig.ws.BackendDir(), "public", "app", "index.html"))

	// Services came up and the app container ran migrate, seed, caches.
	assert.Equal(t, 1, rig.orch.upCalls)
	execs := fmt.Sprint(rig.orch.execCmds)
	assert.Contains(t, execs, "migrate")
	assert.Contains(t, execs, "db:seed")
	assert.Contains(t, execs, "config:cache")

	// Project descriptor advanced.
	project, err := rig.ws.Load()
	require.NoError(t, err)
	require.NotNil(t, project.LastDeploy)
	assert.Equal(t, "bbbbbbb", project.Commits.Backend)
}

func TestSkipPullKeepsRevisionsEqual(t *testing.T) {
	rig := newRig(t)

	run, err := rig.engine.Run(context.Background(), Options{SkipPull: true})
	require.NoError(t, err)

	assert.True(t, run.Success)
	assert.Equal(t, run.Backend.Before, run.Backend.After)
	assert.Equal(t, run.Frontend.Before, run.Frontend.After)
	assert.Empty(t, run.Changes)
	assert.False(t, rig.backend.pulled)

	// Change detection does not apply: installs still run.
	joined := strings.Join(rig.host.commands, "\n")
	assert.Contains(t, joined, "composer install")
	assert.Contains(t, joined, "npm install")
}

func TestDepsSkippedWhenNothingChanged(t *testing.T) {
	rig := newRig(t)
	rig.backend.nextRev = rig.backend.rev
	rig.frontend.nextRev = rig.frontend.rev

	run, err := rig.engine.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, run.Success)

	joined := strings.Join(rig.host.commands, "\n")
	assert.NotContains(t, joined, "composer install")
	assert.NotContains(t, joined, "npm install")
	assert.Contains(t, joined, "npm run build")
}

func TestPullFailureAbortsAndIsRecorded(t *testing.T) {
	rig := newRig(t)
	rig.backend.pullErr = fmt.Errorf("%w: network unreachable", apperrors.ErrGitPullFailed)

	run, err := rig.engine.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGitPullFailed)

	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "pull")
	assert.Equal(t, 0, rig.orch.upCalls, "no bring-up after a failed pull")
	assert.Empty(t, rig.host.commands)

	// Failed run is still in the ledger.
	last, err := rig.ledger.Last()
	require.NoError(t, err)
	assert.False(t, last.Success)
	assert.Equal(t, run.ID, last.ID)
}

func TestPartialPullLeftInPlace(t *testing.T) {
	rig := newRig(t)
	rig.frontend.pullErr = fmt.Errorf("%w: auth failed", apperrors.ErrGitPullFailed)

	run, err := rig.engine.Run(context.Background(), Options{})
	require.Error(t, err)

	// Backend pull completed and its movement is recorded.
	assert.True(t, rig.backend.pulled)
	assert.Equal(t, "bbbbbbb", run.Backend.After)
	assert.Equal(t, run.Frontend.Before, run.Frontend.After)
}

func TestBackupFailureAbortsBeforeAnyMutation(t *testing.T) {
	rig := newRig(t)
	rig.archiver.createErr = fmt.Errorf("%w: dump failed", apperrors.ErrDumpFailed)

	run, err := rig.engine.Run(context.Background(), Options{BackupFirst: true})
	require.Error(t, err)

	assert.False(t, run.Success)
	assert.False(t, rig.backend.pulled, "no pull after a failed safety backup")
	assert.Empty(t, rig.host.commands)
	assert.Equal(t, 0, rig.orch.upCalls)
}

func TestMigrationFailureLeavesServicesUp(t *testing.T) {
	rig := newRig(t)
	rig.orch.execErrFor = "migrate"

	run, err := rig.engine.Run(context.Background(), Options{})
	require.Error(t, err)

	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "migrations")
	assert.Equal(t, 1, rig.orch.upCalls)
	assert.Empty(t, rig.orch.downVolumes, "services are not torn down after a failed migration")
}

func TestSeedFailureIsSoft(t *testing.T) {
	rig := newRig(t)
	rig.orch.execErrFor = "db:seed"

	run, err := rig.engine.Run(context.Background(), Options{Seed: true})
	require.NoError(t, err)

	assert.True(t, run.Success)
	require.Len(t, run.Warnings, 1)
	assert.Contains(t, run.Warnings[0], "seed")
}

func TestFreshDatabaseResetsVolumes(t *testing.T) {
	rig := newRig(t)

	run, err := rig.engine.Run(context.Background(), Options{FreshDatabase: true})
	require.NoError(t, err)
	assert.True(t, run.Success)

	require.Equal(t, []bool{true}, rig.orch.downVolumes)
	execs := fmt.Sprint(rig.orch.execCmds)
	assert.Contains(t, execs, "migrate:fresh")
}

func TestHealthTimeoutIsFatal(t *testing.T) {
	rig := newRig(t)
	rig.orch.waitErr = fmt.Errorf("services did not become healthy within 3m0s: php")

	run, err := rig.engine.Run(context.Background(), Options{})
	require.Error(t, err)

	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "php")
	assert.Empty(t, rig.orch.execCmds, "no migrations against an unhealthy stack")
	assert.Empty(t, rig.orch.downVolumes, "services stay up for inspection")
}

func TestConcurrentRunFailsFast(t *testing.T) {
	rig := newRig(t)

	// Hold the deploy lock as if another run were in flight.
	held, err := rig.engine.locks.Acquire(context.Background(), lock.DeployLock)
	require.NoError(t, err)
	defer held.Release()

	_, err = rig.engine.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPipelineRunning)

	// Nothing ran and nothing was recorded.
	assert.False(t, rig.backend.pulled)
	_, err = rig.ledger.Last()
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
}

func TestNoActiveProject(t *testing.T) {
	root := t.TempDir()
	ws := workspace.New(filepath.Join(root, "active-project"))
	locks, err := lock.NewManager(root)
	require.NoError(t, err)

	engine := NewEngine(ws, &fakeController{}, &fakeArchiver{}, history.NewLedger(ws.HistoryFile()), locks, &hostRunner{})

	_, err = engine.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, apperrors.ErrNoActiveProject)
}

func TestOptionsFlags(t *testing.T) {
	flags := Options{FreshDatabase: true, Seed: true, BackupFirst: true}.flags()
	assert.Equal(t, []string{"--fresh-db", "--seed", "--with-backup"}, flags)
	assert.Empty(t, Options{}.flags())
}
