package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active project's services",
	Long: `Stop and remove the active project's containers.

Named data volumes are preserved, so stop followed by start keeps the
database contents intact. Use destroy --volumes to remove data.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Stopping %s...\n", project.Name)
	if err := orch.Down(ctx, false); err != nil {
		return err
	}

	fmt.Println("Services stopped. Data volumes preserved.")
	return nil
}
