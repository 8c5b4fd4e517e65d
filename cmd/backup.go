package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/backup"
	"github.com/localdeck/localdeck/internal/notify"
	"github.com/localdeck/localdeck/internal/prompt"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage project backups",
	Long:  `Create, list, restore, and delete point-in-time snapshots of the active project.`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a snapshot",
	Long: `Capture the active project's source trees, configuration, and
optionally a live database dump into a self-contained snapshot.

Services do not need to be stopped; the dump is taken against the
running database service.

Examples:
  localdeck backup create
  localdeck backup create before-upgrade
  localdeck backup create --no-db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List snapshots, newest first",
	Args:    cobra.NoArgs,
	RunE:    runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Restore a snapshot",
	Long: `Restore the active project from a snapshot: services are stopped
(volumes preserved), source trees and the rendered configuration are
replaced, services are brought back up, and the database dump is
reloaded when the snapshot includes one.

The dump is reloaded into the running database container after
bring-up, so the services briefly run against the pre-restore data.
The restore is not transactional; a failure partway leaves the
project in a mixed state that must be inspected manually.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRestore,
}

var backupDeleteCmd = &cobra.Command{
	Use:     "delete <snapshot-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a snapshot",
	Args:    cobra.ExactArgs(1),
	RunE:    runBackupDelete,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old snapshots beyond the retention count",
	Args:  cobra.NoArgs,
	RunE:  runBackupPrune,
}

var (
	backupNoDBFlag     bool
	backupNoDBRestore  bool
	backupKeepFlag     int
	backupForceRestore bool
)

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupPruneCmd)

	backupCreateCmd.Flags().BoolVar(&backupNoDBFlag, "no-db", false, "skip the database dump")
	backupRestoreCmd.Flags().BoolVar(&backupNoDBRestore, "no-db", false, "skip reloading the database dump")
	backupRestoreCmd.Flags().BoolVarP(&backupForceRestore, "force", "f", false, "skip the confirmation prompt")
	backupPruneCmd.Flags().IntVar(&backupKeepFlag, "keep", 0, "snapshots to keep (default: backup_retention from config)")
}

// backupManager wires the archiver for the active project.
func backupManager() (*backup.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	ws := activeWorkspace(cfg)
	project, err := requireProject(ws)
	if err != nil {
		return nil, err
	}

	orch, err := newOrchestrator(ws, project)
	if err != nil {
		return nil, err
	}

	locks, err := newLockManager(cfg)
	if err != nil {
		return nil, err
	}

	return newArchiver(cfg, ws, orch, locks), nil
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, err := backupManager()
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	fmt.Println("Creating snapshot...")
	snap, err := mgr.Create(ctx, name, !backupNoDBFlag)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot %s created (%s)\n", snap.ID, humanize.Bytes(uint64(snap.SizeBytes)))
	if !snap.IncludesDB {
		fmt.Println("Note: no database dump included.")
	}
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	mgr, err := backupManager()
	if err != nil {
		return err
	}

	snaps, err := mgr.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tSIZE\tBACKEND\tFRONTEND\tDB")
	for _, s := range snaps {
		name := s.Name
		if name == "" {
			name = "-"
		}
		db := "no"
		if s.IncludesDB {
			db = fmt.Sprintf("%s (%d tables)", humanize.Bytes(uint64(s.DumpSizeBytes)), s.DumpTables)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, name, humanize.Time(s.CreatedAt), humanize.Bytes(uint64(s.SizeBytes)),
			orDash(s.Commits.Backend), orDash(s.Commits.Frontend), db)
	}
	w.Flush()

	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	mgr, err := backupManager()
	if err != nil {
		return err
	}

	snap, err := mgr.Get(id)
	if err != nil {
		return err
	}

	if !backupForceRestore {
		description := fmt.Sprintf("Source trees and configuration will be replaced from snapshot %s (%s).",
			snap.ID, humanize.Time(snap.CreatedAt))
		if snap.IncludesDB && !backupNoDBRestore {
			description += " The database will be reloaded from the dump."
		}
		confirmed, err := prompt.ConfirmAction("Restore snapshot?", description)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Printf("Restoring snapshot %s...\n", snap.ID)
	if err := mgr.Restore(ctx, id, !backupNoDBRestore); err != nil {
		return err
	}

	fmt.Println("Restore complete. Services are up.")
	if cfg, err := loadConfig(); err == nil {
		sendNotification(ctx, cfg, notify.Event{
			Type:    notify.EventRestoreComplete,
			Project: snap.ProjectName,
			Message: fmt.Sprintf("snapshot %s", snap.ID),
		})
	}
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	mgr, err := backupManager()
	if err != nil {
		return err
	}

	if err := mgr.Delete(args[0]); err != nil {
		return err
	}

	fmt.Printf("Snapshot %s deleted.\n", args[0])
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := backupManager()
	if err != nil {
		return err
	}

	keep := backupKeepFlag
	if keep <= 0 {
		keep = cfg.BackupRetention
	}

	removed, err := mgr.Prune(keep)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}

	for _, id := range removed {
		fmt.Printf("Removed %s\n", id)
	}
	return nil
}

// orDash substitutes a dash for empty table cells.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// pruneBackups applies the retention policy after an automatic backup.
// Failures downgrade to verbose warnings.
func pruneBackups(mgr *backup.Manager, keep int) {
	removed, err := mgr.Prune(keep)
	if err != nil {
		printVerbose("Warning: backup pruning failed: %v", err)
		return
	}
	for _, id := range removed {
		printVerbose("Pruned old snapshot %s", id)
	}
}
