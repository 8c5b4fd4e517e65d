package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/workspace"
)

// stageBackup takes a pre-deploy snapshot when requested. Failure is
// fatal: the run must not mutate a project it failed to snapshot.
func (e *Engine) stageBackup(ctx context.Context, opts Options) stageResult {
	if !opts.BackupFirst {
		return ok()
	}
	e.status("creating pre-deploy backup")
	snap, err := e.backup.Create(ctx, "pre-deploy", true)
	if err != nil {
		return fatal(err)
	}
	e.verbose("backup %s created", snap.ID)
	return ok()
}

// stagePull pulls both repositories and records revision movement.
// A failed pull aborts; an already-completed backend pull is left in
// place when the frontend pull fails.
func (e *Engine) stagePull(ctx context.Context, opts Options, state *runState) stageResult {
	if opts.SkipPull {
		e.status("skipping source pull")
		return ok()
	}

	e.status("pulling backend repository")
	if err := state.backend.Pull(ctx); err != nil {
		return fatal(err)
	}
	state.backendRev.After = e.revision(ctx, state.backend)
	state.backendChanged = changedSince(ctx, state.backend, state.backendRev.Before)

	e.status("pulling frontend repository")
	if err := state.frontend.Pull(ctx); err != nil {
		return fatal(err)
	}
	state.frontendRev.After = e.revision(ctx, state.frontend)
	state.frontendChanged = changedSince(ctx, state.frontend, state.frontendRev.Before)

	if !state.backendChanged && !state.frontendChanged {
		e.status("sources already up to date")
	}
	return ok()
}

// stageDeps installs dependencies for each tree that changed. When the
// pull was skipped, change detection does not apply and both installs
// always run.
func (e *Engine) stageDeps(ctx context.Context, opts Options, state *runState) stageResult {
	if opts.SkipDeps {
		e.status("skipping dependency install")
		return ok()
	}

	backendNeeded := state.backendChanged || opts.SkipPull
	frontendNeeded := state.frontendChanged || opts.SkipPull

	if backendNeeded {
		e.status("installing backend dependencies")
		var spec runner.Spec
		switch state.project.Stack {
		case workspace.StackSpringBootVue:
			spec = runner.Spec{Name: "./mvnw", Args: []string{"dependency:resolve", "-q"}, Dir: e.ws.BackendDir()}
		default:
			spec = runner.Spec{Name: "composer", Args: []string{"install", "--no-interaction", "--prefer-dist"}, Dir: e.ws.BackendDir()}
		}
		if res, err := e.run.Run(ctx, spec); err != nil {
			e.verbose("%s", stderrOf(res))
			return fatal(err)
		}
	}

	if frontendNeeded {
		e.status("installing frontend dependencies")
		spec := runner.Spec{Name: "npm", Args: []string{"install"}, Dir: e.ws.FrontendDir()}
		if res, err := e.run.Run(ctx, spec); err != nil {
			e.verbose("%s", stderrOf(res))
			return fatal(err)
		}
	}
	return ok()
}

// stageBuild builds the frontend and copies the bundle into the path
// the web container serves from.
func (e *Engine) stageBuild(ctx context.Context, opts Options, state *runState) stageResult {
	if opts.SkipBuild {
		e.status("skipping frontend build")
		return ok()
	}

	e.status("building frontend assets")
	spec := runner.Spec{Name: "npm", Args: []string{"run", "build"}, Dir: e.ws.FrontendDir()}
	if res, err := e.run.Run(ctx, spec); err != nil {
		e.verbose("%s", stderrOf(res))
		return fatal(err)
	}

	dist := filepath.Join(e.ws.FrontendDir(), "dist")
	if _, err := os.Stat(dist); err != nil {
		return fatal(fmt.Errorf("build produced no dist directory at %s", dist))
	}

	target := filepath.Join(e.ws.BackendDir(), filepath.FromSlash(state.project.Stack.FrontendTarget()))
	e.verbose("copying %s to %s", dist, target)
	if err := syncDir(dist, target); err != nil {
		return fatal(fmt.Errorf("failed to place frontend bundle: %w", err))
	}
	return ok()
}

// stageUp brings the services up and waits for health. fresh-database
// resets volumes first. A health timeout is fatal but leaves services
// running for inspection.
func (e *Engine) stageUp(ctx context.Context, opts Options) stageResult {
	if opts.FreshDatabase {
		e.status("resetting database volumes")
		if err := e.orch.Down(ctx, true); err != nil {
			return fatal(err)
		}
	}

	e.status("starting services")
	if err := e.orch.Up(ctx, compose.UpOptions{Rebuild: true}); err != nil {
		return fatal(err)
	}

	e.status("waiting for services to become healthy")
	if err := e.orch.WaitHealthy(ctx, e.HealthTimeout); err != nil {
		return fatal(err)
	}
	return ok()
}

// stageMigrate runs schema migrations inside the app container. A
// failure aborts but services stay up.
func (e *Engine) stageMigrate(ctx context.Context, opts Options, state *runState) stageResult {
	if state.project.Stack != workspace.StackLaravelVue {
		// Spring Boot applies its schema on startup.
		return ok()
	}

	e.status("running database migrations")
	args := []string{"php", "artisan", "migrate", "--force"}
	if opts.FreshDatabase {
		args = []string{"php", "artisan", "migrate:fresh", "--force"}
	}
	if res, err := e.orch.Exec(ctx, state.project.Stack.AppService(), args...); err != nil {
		e.verbose("%s", stderrOf(res))
		return fatal(err)
	}
	return ok()
}

// stageSeed populates seed data when requested. Soft: the application
// runs without seed data.
func (e *Engine) stageSeed(ctx context.Context, opts Options, state *runState) stageResult {
	if !opts.Seed || state.project.Stack != workspace.StackLaravelVue {
		return ok()
	}

	e.status("seeding database")
	if res, err := e.orch.Exec(ctx, state.project.Stack.AppService(), "php", "artisan", "db:seed", "--force"); err != nil {
		e.verbose("%s", stderrOf(res))
		return soft(err)
	}
	return ok()
}

// stageOptimize warms application caches. Soft: a cold cache only costs
// performance.
func (e *Engine) stageOptimize(ctx context.Context, state *runState) stageResult {
	if state.project.Stack != workspace.StackLaravelVue {
		return ok()
	}

	e.status("optimizing application caches")
	for _, cmd := range [][]string{
		{"php", "artisan", "config:cache"},
		{"php", "artisan", "route:cache"},
		{"php", "artisan", "view:cache"},
	} {
		if res, err := e.orch.Exec(ctx, state.project.Stack.AppService(), cmd...); err != nil {
			e.verbose("%s", stderrOf(res))
			return soft(err)
		}
	}
	return ok()
}

// syncDir replaces dst with a copy of src.
func syncDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, info.Mode().Perm())
	})
}

// changedSince errs on the side of reinstalling: a failed comparison
// counts as changed.
func changedSince(ctx context.Context, repo git.Operations, previous string) bool {
	changed, err := repo.ChangedSince(ctx, previous)
	if err != nil {
		return true
	}
	return changed
}

func stderrOf(res *runner.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}
