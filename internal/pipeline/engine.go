// Package pipeline runs the ordered deployment stages for the active
// project: snapshot, pull, install, build, bring-up, migrate, seed,
// optimize, record.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/localdeck/localdeck/internal/backup"
	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/history"
	"github.com/localdeck/localdeck/internal/lock"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/workspace"
)

// defaultHealthTimeout bounds the post-bring-up health wait.
const defaultHealthTimeout = 3 * time.Minute

// Options selects which stages run and how.
type Options struct {
	SkipPull      bool
	SkipDeps      bool
	SkipBuild     bool
	FreshDatabase bool
	Seed          bool
	BackupFirst   bool
}

// flags renders the options as the CLI flags that requested them, for
// the history record.
func (o Options) flags() []string {
	var flags []string
	if o.SkipPull {
		flags = append(flags, "--no-pull")
	}
	if o.SkipDeps {
		flags = append(flags, "--no-deps")
	}
	if o.SkipBuild {
		flags = append(flags, "--no-build")
	}
	if o.FreshDatabase {
		flags = append(flags, "--fresh-db")
	}
	if o.Seed {
		flags = append(flags, "--seed")
	}
	if o.BackupFirst {
		flags = append(flags, "--with-backup")
	}
	return flags
}

// Engine drives the deployment pipeline.
type Engine struct {
	ws     workspace.Store
	orch   compose.Orchestrator
	backup backup.Archiver
	ledger *history.Ledger
	locks  *lock.Manager
	run    runner.Runner

	// gitFor builds a git manager for a checkout path. Overridable in
	// tests.
	gitFor func(path string) git.Operations

	// HealthTimeout bounds the wait-until-healthy stage.
	HealthTimeout time.Duration

	// OnStatus receives one line per stage transition. OnVerbose
	// receives command-level detail. Either may be nil.
	OnStatus  func(msg string)
	OnVerbose func(msg string)
}

// NewEngine wires a pipeline engine from its collaborators.
func NewEngine(ws workspace.Store, orch compose.Orchestrator, archiver backup.Archiver,
	ledger *history.Ledger, locks *lock.Manager, run runner.Runner) *Engine {
	return &Engine{
		ws:            ws,
		orch:          orch,
		backup:        archiver,
		ledger:        ledger,
		locks:         locks,
		run:           run,
		gitFor:        func(path string) git.Operations { return git.NewManager(path, run) },
		HealthTimeout: defaultHealthTimeout,
	}
}

func (e *Engine) status(format string, args ...interface{}) {
	if e.OnStatus != nil {
		e.OnStatus(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) verbose(format string, args ...interface{}) {
	if e.OnVerbose != nil {
		e.OnVerbose(fmt.Sprintf(format, args...))
	}
}

// Run executes the pipeline and returns the recorded run. Precondition
// failures (no active project, missing compose file, concurrent run)
// return an error without a history record; every later failure is
// recorded as a failed run.
func (e *Engine) Run(ctx context.Context, opts Options) (history.DeployRun, error) {
	project, err := e.ws.Load()
	if err != nil {
		return history.DeployRun{}, err
	}
	if _, err := e.ws.ComposeFile(); err != nil {
		return history.DeployRun{}, err
	}
	if _, err := os.Stat(e.ws.BackendDir()); err != nil {
		return history.DeployRun{}, fmt.Errorf("backend checkout missing at %s", e.ws.BackendDir())
	}
	if _, err := os.Stat(e.ws.FrontendDir()); err != nil {
		return history.DeployRun{}, fmt.Errorf("frontend checkout missing at %s", e.ws.FrontendDir())
	}

	held, err := e.locks.Acquire(ctx, lock.DeployLock)
	if err != nil {
		return history.DeployRun{}, err
	}
	defer held.Release()

	start := time.Now()
	state := &runState{
		project:  project,
		backend:  e.gitFor(e.ws.BackendDir()),
		frontend: e.gitFor(e.ws.FrontendDir()),
	}
	state.backendRev.Before = e.revision(ctx, state.backend)
	state.frontendRev.Before = e.revision(ctx, state.frontend)
	state.backendRev.After = state.backendRev.Before
	state.frontendRev.After = state.frontendRev.Before

	stages := []stage{
		{"backup", func(ctx context.Context) stageResult { return e.stageBackup(ctx, opts) }},
		{"pull", func(ctx context.Context) stageResult { return e.stagePull(ctx, opts, state) }},
		{"dependencies", func(ctx context.Context) stageResult { return e.stageDeps(ctx, opts, state) }},
		{"frontend build", func(ctx context.Context) stageResult { return e.stageBuild(ctx, opts, state) }},
		{"bring-up", func(ctx context.Context) stageResult { return e.stageUp(ctx, opts) }},
		{"migrations", func(ctx context.Context) stageResult { return e.stageMigrate(ctx, opts, state) }},
		{"seed", func(ctx context.Context) stageResult { return e.stageSeed(ctx, opts, state) }},
		{"optimization", func(ctx context.Context) stageResult { return e.stageOptimize(ctx, state) }},
	}

	// Fold: first fatal aborts, soft failures accumulate as warnings.
	var warnings []string
	var fatalErr error
	for _, s := range stages {
		res := s.fn(ctx)
		switch res.status {
		case stageFatal:
			fatalErr = fmt.Errorf("%s: %w", s.name, res.err)
		case stageSoft:
			e.status("warning in %s: %v", s.name, res.err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", s.name, res.err))
		}
		if fatalErr != nil {
			break
		}
	}

	run := history.DeployRun{
		Timestamp:       start,
		Success:         fatalErr == nil,
		DurationSeconds: time.Since(start).Seconds(),
		Backend:         state.backendRev,
		Frontend:        state.frontendRev,
		Changes:         state.changes(),
		Warnings:        warnings,
		Flags:           opts.flags(),
	}
	if fatalErr != nil {
		run.Error = fatalErr.Error()
	}

	recorded, recErr := e.ledger.Append(run)
	if recErr != nil {
		if fatalErr != nil {
			return run, fmt.Errorf("%v (and recording the run failed: %w)", fatalErr, recErr)
		}
		return run, recErr
	}

	if fatalErr == nil {
		now := time.Now()
		project.LastDeploy = &now
		project.Commits = workspace.Revisions{
			Backend:  state.backendRev.After,
			Frontend: state.frontendRev.After,
		}
		if err := e.ws.Save(project); err != nil {
			return recorded, err
		}
		e.status("deployment complete in %.1fs", recorded.DurationSeconds)
		return recorded, nil
	}
	return recorded, fatalErr
}

// runState carries per-run facts between stages.
type runState struct {
	project     *workspace.Project
	backend     git.Operations
	frontend    git.Operations
	backendRev  history.RevisionPair
	frontendRev history.RevisionPair

	backendChanged  bool
	frontendChanged bool
}

// changes renders the revision movements for the history record.
func (s *runState) changes() []string {
	var changes []string
	if s.backendChanged {
		changes = append(changes, fmt.Sprintf("backend: %s -> %s", s.backendRev.Before, s.backendRev.After))
	}
	if s.frontendChanged {
		changes = append(changes, fmt.Sprintf("frontend: %s -> %s", s.frontendRev.Before, s.frontendRev.After))
	}
	return changes
}

type stageStatus int

const (
	stageOk stageStatus = iota
	stageSoft
	stageFatal
)

type stageResult struct {
	status stageStatus
	err    error
}

func ok() stageResult             { return stageResult{status: stageOk} }
func fatal(err error) stageResult { return stageResult{status: stageFatal, err: err} }
func soft(err error) stageResult  { return stageResult{status: stageSoft, err: err} }

type stage struct {
	name string
	fn   func(ctx context.Context) stageResult
}

// revision reads the current short commit, or "unknown" for a tree that
// is not a git checkout.
func (e *Engine) revision(ctx context.Context, repo git.Operations) string {
	if !repo.IsGitRepo(ctx) {
		return "unknown"
	}
	sha, err := repo.CurrentCommitShort(ctx)
	if err != nil {
		return "unknown"
	}
	return sha
}
