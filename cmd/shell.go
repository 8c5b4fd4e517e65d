package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell [service]",
	Short: "Open an interactive shell inside a service",
	Long: `Attach an interactive shell inside a running service container.

Without a service name, the stack's application service is used.
Tries /bin/bash first and falls back to /bin/sh for minimal images.

Examples:
  localdeck shell
  localdeck shell mysql`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
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

	service := project.Stack.AppService()
	if len(args) > 0 {
		service = args[0]
	}

	code, err := orch.ExecInteractive(ctx, service)
	if err != nil {
		return err
	}
	if code != 0 {
		// Propagate the session's exit code.
		os.Exit(code)
	}
	return nil
}
