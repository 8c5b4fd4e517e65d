// Package cmd provides CLI commands for localdeck.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/localdeck/localdeck/internal/backup"
	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/config"
	"github.com/localdeck/localdeck/internal/history"
	"github.com/localdeck/localdeck/internal/lock"
	"github.com/localdeck/localdeck/internal/notify"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/workspace"
)

// Version is the current version of localdeck.
// Can be overridden at build time: go build -ldflags "-X github.com/localdeck/localdeck/cmd.Version=v1.0.0"
var Version = "v0.1.0"

var (
	cfgFile string
	dataDir string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "localdeck",
	Short: "Local deployment orchestration for containerized full-stack projects",
	Long: `Localdeck manages the full lifecycle of a locally-hosted containerized
full-stack project: provisioning, deployment, health supervision,
backup/restore, and audit history.

It drives a single active project (a backend and a frontend repository
plus a docker compose topology) through a repeatable deploy pipeline,
and keeps point-in-time snapshots for recovery.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.localdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default is $HOME/.localdeck)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Bind flags to viper
	viper.BindPFlag("base_path", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".localdeck")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read environment variables
	viper.SetEnvPrefix("LOCALDECK")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the global configuration from viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.BasePath = dataDir
	}
	return cfg, nil
}

// activeWorkspace returns the single-slot workspace for the active project.
func activeWorkspace(cfg *config.Config) *workspace.Workspace {
	return workspace.New(cfg.ActiveProjectDir())
}

// requireProject loads the active project or fails with a friendly hint.
func requireProject(ws *workspace.Workspace) (*workspace.Project, error) {
	project, err := ws.Load()
	if err != nil {
		return nil, fmt.Errorf("%w (run 'localdeck init' first)", err)
	}
	return project, nil
}

// newOrchestrator builds a compose manager for the active project.
func newOrchestrator(ws *workspace.Workspace, project *workspace.Project) (*compose.Manager, error) {
	composeFile, err := ws.ComposeFile()
	if err != nil {
		return nil, fmt.Errorf("no compose file in %s: %w", ws.Dir(), err)
	}
	return compose.NewManager(ws.Dir(), composeFile, project.Name, runner.New()), nil
}

// newArchiver builds the backup manager for the active project.
func newArchiver(cfg *config.Config, ws *workspace.Workspace, orch compose.Orchestrator, locks *lock.Manager) *backup.Manager {
	return backup.NewManager(cfg.BackupsDir(), ws, orch, locks, runner.New())
}

// newNotifier assembles the notification fan-out from config. It has
// no backends when no endpoint is configured.
func newNotifier(cfg *config.Config) *notify.Manager {
	m := notify.NewManager()
	if cfg.NotifyWebhook != "" {
		m.Register(notify.NewWebhookNotifier(cfg.NotifyWebhook))
	}
	return m
}

// sendNotification delivers an event best-effort; failures downgrade
// to verbose warnings.
func sendNotification(ctx context.Context, cfg *config.Config, event notify.Event) {
	mgr := newNotifier(cfg)
	if mgr.Count() == 0 {
		return
	}
	if err := mgr.Notify(ctx, event); err != nil {
		printVerbose("Warning: notification delivery failed: %v", err)
	}
}

// newLedger opens the deploy history ledger of the active project.
func newLedger(ws *workspace.Workspace) *history.Ledger {
	return history.NewLedger(ws.HistoryFile())
}

// newLockManager initializes the lock manager under the data directory.
func newLockManager(cfg *config.Config) (*lock.Manager, error) {
	manager, err := lock.NewManager(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lock manager: %w", err)
	}
	return manager, nil
}

// isVerbose returns true if verbose output is enabled.
func isVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if isVerbose() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
