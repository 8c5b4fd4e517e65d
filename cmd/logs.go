package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs [service]",
	Short: "Show service logs",
	Long: `Show logs for one service, or for all services when no name is given.

Examples:
  localdeck logs
  localdeck logs php
  localdeck logs nginx --follow
  localdeck logs mysql --tail 200`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

var (
	logsFollowFlag bool
	logsTailFlag   int
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolVarP(&logsFollowFlag, "follow", "f", false, "stream logs until interrupted")
	logsCmd.Flags().IntVar(&logsTailFlag, "tail", 100, "number of lines to show from the end")
}

func runLogs(cmd *cobra.Command, args []string) error {
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

	out, err := orch.Logs(ctx, service, logsFollowFlag, logsTailFlag)
	if err != nil {
		return err
	}
	// Follow mode streams directly to the terminal; out is empty.
	if out != "" {
		fmt.Print(out)
	}
	return nil
}
