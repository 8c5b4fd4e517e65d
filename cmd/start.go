package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/compose"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the active project's services",
	Long: `Start all declared services of the active project and wait until
every health-checked service reports healthy.

Unlike deploy, start does not pull sources, install dependencies, or
run migrations. It only brings the existing topology up.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var (
	startRebuildFlag bool
	startTimeoutFlag time.Duration
)

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().BoolVar(&startRebuildFlag, "rebuild", false, "rebuild images before starting")
	startCmd.Flags().DurationVar(&startTimeoutFlag, "timeout", 3*time.Minute, "health wait timeout")
}

func runStart(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Starting %s...\n", project.Name)
	if err := orch.Up(ctx, compose.UpOptions{Rebuild: startRebuildFlag}); err != nil {
		return err
	}

	fmt.Println("Waiting for services to become healthy...")
	if err := orch.WaitHealthy(ctx, startTimeoutFlag); err != nil {
		return err
	}

	fmt.Printf("%s is up at https://%s\n", project.Name, project.Domain)
	return nil
}
