package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/ports"
)

var checkPortsCmd = &cobra.Command{
	Use:   "check-ports",
	Short: "Check availability of the configured ports",
	Long: `Probe every port the active project (or, without a project, the
configured defaults) would bind, and report which are free.`,
	Args: cobra.NoArgs,
	RunE: runCheckPorts,
}

func init() {
	rootCmd.AddCommand(checkPortsCmd)
}

func runCheckPorts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	assigned := cfg.DefaultPorts
	ws := activeWorkspace(cfg)
	if ws.Exists() {
		if project, err := ws.Load(); err == nil {
			assigned = project.Ports
		}
	}

	checks := ports.CheckAll(assigned)
	if len(checks) == 0 {
		fmt.Println("No ports configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tUSE\tSTATE")
	conflicts := 0
	for _, c := range checks {
		state := "free"
		if !c.Available {
			state = "in use"
			conflicts++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.Port, c.Name, state)
	}
	w.Flush()

	if conflicts > 0 {
		return fmt.Errorf("%d port(s) already in use", conflicts)
	}
	fmt.Println("\nAll ports available.")
	return nil
}
