package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart [service]",
	Short: "Restart one service, or all services",
	Long: `Restart a single named service, or every service when no name is
given. The name is checked against the compose topology first.

Examples:
  localdeck restart
  localdeck restart php
  localdeck restart nginx`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, args []string) error {
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

	var service string
	if len(args) > 0 {
		service = args[0]
	}

	if service == "" {
		fmt.Printf("Restarting all services of %s...\n", project.Name)
	} else {
		fmt.Printf("Restarting %s...\n", service)
	}
	if err := orch.Restart(ctx, service); err != nil {
		return err
	}

	fmt.Println("Done.")
	return nil
}
