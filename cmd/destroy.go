package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/prompt"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy the active project",
	Long: `Stop the active project's services and remove the workspace,
including cloned repositories, rendered configuration, and history.

Data volumes are preserved unless --volumes is given. Backups are
never removed by destroy.`,
	Args: cobra.NoArgs,
	RunE: runDestroy,
}

var (
	destroyVolumesFlag bool
	destroyForceFlag   bool
)

func init() {
	rootCmd.AddCommand(destroyCmd)

	destroyCmd.Flags().BoolVar(&destroyVolumesFlag, "volumes", false, "also remove data volumes")
	destroyCmd.Flags().BoolVarP(&destroyForceFlag, "force", "f", false, "skip the confirmation prompt")
}

func runDestroy(cmd *cobra.Command, args []string) error {
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

	if !destroyForceFlag {
		description := fmt.Sprintf("This removes the workspace of %q. Data volumes are kept.", project.Name)
		if destroyVolumesFlag {
			description = fmt.Sprintf("This removes the workspace of %q AND its data volumes. Database contents will be lost.", project.Name)
		}
		confirmed, err := prompt.ConfirmAction("Destroy project?", description)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	orch, err := newOrchestrator(ws, project)
	if err == nil {
		fmt.Printf("Stopping %s...\n", project.Name)
		if err := orch.Down(ctx, destroyVolumesFlag); err != nil {
			printVerbose("Warning: failed to stop services: %v", err)
		}
	} else {
		// No compose file left; nothing to stop.
		printVerbose("Skipping service teardown: %v", err)
	}

	if err := ws.Remove(); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}

	fmt.Printf("Project %q destroyed.\n", project.Name)
	return nil
}
