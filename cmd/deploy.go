package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/notify"
	"github.com/localdeck/localdeck/internal/pipeline"
	"github.com/localdeck/localdeck/internal/runner"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the active project",
	Long: `Run the deployment pipeline for the active project.

The pipeline pulls both repositories, installs dependencies when
sources changed, builds the frontend, brings services up, waits for
health, and runs schema migrations. Every run, successful or not, is
recorded in the deploy history.

Examples:
  localdeck deploy
  localdeck deploy --fresh-db --seed
  localdeck deploy --no-pull --no-build
  localdeck deploy --with-backup`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

var (
	deployFreshDBFlag    bool
	deploySeedFlag       bool
	deployWithBackupFlag bool
	deployNoPullFlag     bool
	deployNoDepsFlag     bool
	deployNoBuildFlag    bool
	deployTimeoutFlag    time.Duration
)

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().BoolVar(&deployFreshDBFlag, "fresh-db", false, "reset the database volume and schema before bring-up")
	deployCmd.Flags().BoolVar(&deploySeedFlag, "seed", false, "run seed data population after migration")
	deployCmd.Flags().BoolVar(&deployWithBackupFlag, "with-backup", false, "create a backup before any mutation")
	deployCmd.Flags().BoolVar(&deployNoPullFlag, "no-pull", false, "skip pulling source repositories")
	deployCmd.Flags().BoolVar(&deployNoDepsFlag, "no-deps", false, "skip dependency installation")
	deployCmd.Flags().BoolVar(&deployNoBuildFlag, "no-build", false, "skip the frontend build")
	deployCmd.Flags().DurationVar(&deployTimeoutFlag, "timeout", 3*time.Minute, "health wait timeout")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ws := activeWorkspace(cfg)
	project, err := requireProject(ws)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(ws, project)
	if err != nil {
		return err
	}

	if err := compose.CheckInstalled(ctx, runner.New()); err != nil {
		return err
	}

	locks, err := newLockManager(cfg)
	if err != nil {
		return err
	}

	archiver := newArchiver(cfg, ws, orch, locks)
	engine := pipeline.NewEngine(ws, orch, archiver, newLedger(ws), locks, runner.New())
	engine.HealthTimeout = deployTimeoutFlag
	engine.OnStatus = func(msg string) { fmt.Println(msg) }
	engine.OnVerbose = func(msg string) { printVerbose("%s", msg) }

	opts := pipeline.Options{
		SkipPull:      deployNoPullFlag,
		SkipDeps:      deployNoDepsFlag,
		SkipBuild:     deployNoBuildFlag,
		FreshDatabase: deployFreshDBFlag,
		Seed:          deploySeedFlag,
		BackupFirst:   deployWithBackupFlag || cfg.AutoBackup,
	}

	fmt.Printf("Deploying %s (%s)...\n", project.Name, project.Stack)
	run, err := engine.Run(ctx, opts)
	if err != nil {
		if run.ID != 0 {
			fmt.Printf("Deploy #%d failed after %.1fs: %s\n", run.ID, run.DurationSeconds, run.Error)
			sendNotification(ctx, cfg, notify.Event{
				Type:     notify.EventDeployFailed,
				Project:  project.Name,
				RunID:    run.ID,
				Duration: run.DurationSeconds,
				Message:  run.Error,
			})
		}
		return err
	}

	sendNotification(ctx, cfg, notify.Event{
		Type:     notify.EventDeploySucceeded,
		Project:  project.Name,
		RunID:    run.ID,
		Duration: run.DurationSeconds,
	})

	if opts.BackupFirst {
		pruneBackups(archiver, cfg.BackupRetention)
	}

	fmt.Printf("\nDeploy #%d succeeded in %.1fs\n", run.ID, run.DurationSeconds)
	if run.Backend.After != "" {
		fmt.Printf("  Backend:  %s\n", git.ShortSHA(run.Backend.After))
	}
	if run.Frontend.After != "" {
		fmt.Printf("  Frontend: %s\n", git.ShortSHA(run.Frontend.After))
	}
	for _, w := range run.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	fmt.Printf("\nProject is up at https://%s\n", project.Domain)
	return nil
}
