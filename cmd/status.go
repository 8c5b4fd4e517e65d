package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active project and its services",
	Long: `Show the active project, its last deploy, and the state of every
declared service.

With --watch, opens a live dashboard that refreshes continuously.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	statusWatchFlag   bool
	statusRefreshFlag time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusWatchFlag, "watch", "w", false, "live-updating dashboard")
	statusCmd.Flags().DurationVar(&statusRefreshFlag, "refresh", 5*time.Second, "refresh interval for --watch")
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	if statusWatchFlag {
		model := tui.NewModel(ctx, project, orch, statusRefreshFlag)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to run dashboard: %w", err)
		}
		return nil
	}

	fmt.Printf("Project: %s\n", project.Name)
	fmt.Printf("Stack:   %s\n", project.Stack)
	fmt.Printf("Domain:  %s\n", project.Domain)
	if project.LastDeploy != nil {
		fmt.Printf("Last deploy: %s (backend %s, frontend %s)\n",
			project.LastDeploy.Format("2006-01-02 15:04:05"),
			git.ShortSHA(project.Commits.Backend),
			git.ShortSHA(project.Commits.Frontend))
	} else {
		fmt.Println("Last deploy: never")
	}
	if summary := lastRunSummary(newLedger(ws)); summary != "" {
		fmt.Printf("Last run:    %s\n", summary)
	}
	fmt.Println()

	states, err := orch.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query service status: %w", err)
	}
	if len(states) == 0 {
		fmt.Println("No services running.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tHEALTH")
	for _, s := range states {
		health := s.Health
		if health == "" {
			health = "-"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", tui.ServiceIcon(s.Running, s.Health), s.Name, s.Status, health)
	}
	w.Flush()

	return nil
}
