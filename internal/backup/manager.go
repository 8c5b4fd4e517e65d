package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/localdeck/localdeck/internal/compose"
	"github.com/localdeck/localdeck/internal/errors"
	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/lock"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/workspace"
)

const (
	metadataFile = "backup-metadata.json"
	dumpFile     = "db_dump.sql"

	// restoreHealthTimeout bounds the post-restore bring-up wait.
	restoreHealthTimeout = 3 * time.Minute
)

// configFiles are the project documents and rendered deployment files
// captured alongside the source trees. Missing files are skipped, so
// one list covers both stacks.
var configFiles = []string{
	"project.json",
	"credentials.json",
	"docker-compose.yml",
	"nginx.conf",
	"php.Dockerfile",
	"springboot.Dockerfile",
}

// Manager creates, lists, restores, and prunes snapshots.
type Manager struct {
	backupsDir string
	ws         workspace.Store
	orch       compose.Orchestrator
	locks      *lock.Manager
	run        runner.Runner
	now        func() time.Time
}

// NewManager creates a backup manager storing snapshots under backupsDir.
func NewManager(backupsDir string, ws workspace.Store, orch compose.Orchestrator,
	locks *lock.Manager, run runner.Runner) *Manager {
	return &Manager{
		backupsDir: backupsDir,
		ws:         ws,
		orch:       orch,
		locks:      locks,
		run:        run,
		now:        time.Now,
	}
}

// Dir returns the snapshot directory for an id.
func (m *Manager) Dir(id string) string {
	return filepath.Join(m.backupsDir, id)
}

// Create takes a snapshot of the active project: both source trees, the
// rendered configuration, and, when includeDB is set, a database dump
// taken live from the running container. A failed dump aborts the
// snapshot and removes the partial directory. The finished snapshot
// directory carries its own metadata document and is self-contained.
func (m *Manager) Create(ctx context.Context, name string, includeDB bool) (Snapshot, error) {
	project, err := m.ws.Load()
	if err != nil {
		return Snapshot{}, err
	}

	createdAt := m.now()
	id := snapshotID(createdAt, name)
	dest := m.Dir(id)

	if err := os.MkdirAll(dest, 0750); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.RemoveAll(dest)
		}
	}()

	for _, tree := range []struct{ src, name string }{
		{m.ws.BackendDir(), "backend"},
		{m.ws.FrontendDir(), "frontend"},
	} {
		if _, err := os.Stat(tree.src); os.IsNotExist(err) {
			continue
		}
		if err := copyTree(tree.src, filepath.Join(dest, tree.name)); err != nil {
			return Snapshot{}, fmt.Errorf("failed to snapshot %s tree: %w", tree.name, err)
		}
	}

	for _, file := range configFiles {
		src := filepath.Join(m.ws.Dir(), file)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, filepath.Join(dest, file)); err != nil {
			return Snapshot{}, fmt.Errorf("failed to snapshot %s: %w", file, err)
		}
	}

	var dump dumpStats
	if includeDB {
		dump, err = m.dumpDatabase(ctx, project, filepath.Join(dest, dumpFile))
		if err != nil {
			return Snapshot{}, err
		}
	}

	size, err := treeSize(dest)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to measure snapshot: %w", err)
	}

	snap := Snapshot{
		ID:            id,
		Name:          name,
		CreatedAt:     createdAt,
		ProjectName:   project.Name,
		Stack:         string(project.Stack),
		Commits:       m.revisions(ctx),
		IncludesDB:    includeDB,
		DumpSizeBytes: dump.SizeBytes,
		DumpTables:    dump.Tables,
		SizeBytes:     size,
		Location:      dest,
	}

	if err := writeMetadata(dest, snap); err != nil {
		return Snapshot{}, err
	}

	success = true
	return snap, nil
}

// List returns all snapshots, newest first. Each snapshot directory is
// read on its own; directories without a metadata document are ignored.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snap, err := readMetadata(filepath.Join(m.backupsDir, e.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	sortNewestFirst(snaps)
	return snaps, nil
}

// Get returns the snapshot with the given id.
func (m *Manager) Get(id string) (Snapshot, error) {
	snap, err := readMetadata(m.Dir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("%w: %s", errors.ErrSnapshotNotFound, id)
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Restore replaces the active project with a snapshot: services go
// down, the source trees and rendered configuration are swapped,
// services come back up, and the database dump is reloaded when present
// and requested. It takes the deploy lock, so a restore never
// interleaves with a running pipeline.
func (m *Manager) Restore(ctx context.Context, id string, includeDB bool) error {
	snap, err := m.Get(id)
	if err != nil {
		return err
	}
	src := m.Dir(snap.ID)

	held, err := m.locks.Acquire(ctx, lock.DeployLock)
	if err != nil {
		return err
	}
	defer held.Release()

	if err := m.orch.Down(ctx, false); err != nil {
		return fmt.Errorf("failed to stop services before restore: %w", err)
	}

	if err := replaceTree(filepath.Join(src, "backend"), m.ws.BackendDir()); err != nil {
		return fmt.Errorf("failed to restore backend tree: %w", err)
	}
	if err := replaceTree(filepath.Join(src, "frontend"), m.ws.FrontendDir()); err != nil {
		return fmt.Errorf("failed to restore frontend tree: %w", err)
	}
	for _, file := range configFiles {
		from := filepath.Join(src, file)
		if _, err := os.Stat(from); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(from, filepath.Join(m.ws.Dir(), file)); err != nil {
			return fmt.Errorf("failed to restore %s: %w", file, err)
		}
	}

	if err := m.orch.Up(ctx, compose.UpOptions{}); err != nil {
		return fmt.Errorf("failed to start services after restore: %w", err)
	}
	if err := m.orch.WaitHealthy(ctx, restoreHealthTimeout); err != nil {
		return err
	}

	if includeDB && snap.IncludesDB {
		project, err := m.ws.Load()
		if err != nil {
			return err
		}
		if err := m.reloadDatabase(ctx, project, filepath.Join(src, dumpFile)); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes a snapshot directory, metadata included.
func (m *Manager) Delete(id string) error {
	dir := m.Dir(id)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errors.ErrSnapshotNotFound, id)
		}
		return fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// Prune deletes all but the newest keep snapshots and returns the ids
// it removed.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(snaps) <= keep {
		return nil, nil
	}

	var removed []string
	for _, s := range snaps[keep:] {
		if err := m.Delete(s.ID); err != nil {
			return removed, err
		}
		removed = append(removed, s.ID)
	}
	return removed, nil
}

// revisions captures the short commit of each source tree. Trees that
// are not git checkouts are left empty.
func (m *Manager) revisions(ctx context.Context) Revisions {
	var rev Revisions
	if g := git.NewManager(m.ws.BackendDir(), m.run); g.IsGitRepo(ctx) {
		if sha, err := g.CurrentCommitShort(ctx); err == nil {
			rev.Backend = sha
		}
	}
	if g := git.NewManager(m.ws.FrontendDir(), m.run); g.IsGitRepo(ctx) {
		if sha, err := g.CurrentCommitShort(ctx); err == nil {
			rev.Frontend = sha
		}
	}
	return rev
}

// dumpStats describes a completed database dump.
type dumpStats struct {
	SizeBytes int64
	Tables    int
}

// dumpDatabase streams a logical dump out of the running database
// container into path and reports its size and table count.
func (m *Manager) dumpDatabase(ctx context.Context, project *workspace.Project, path string) (dumpStats, error) {
	creds, err := m.ws.LoadCredentials()
	if err != nil {
		return dumpStats{}, fmt.Errorf("%w: %v", errors.ErrDumpFailed, err)
	}

	service := project.Stack.DatabaseService()
	var cmd []string
	switch project.Database.Engine {
	case "postgres":
		cmd = []string{"pg_dump", "-U", project.Database.User, "--clean", "--if-exists", project.Database.Name}
	default:
		cmd = []string{"mysqldump", "-uroot", "-p" + creds.DBRootPassword,
			"--single-transaction", "--routines", project.Database.Name}
	}

	res, err := m.orch.Exec(ctx, service, cmd...)
	if err != nil {
		return dumpStats{}, fmt.Errorf("%w: %v", errors.ErrDumpFailed, err)
	}
	if err := os.WriteFile(path, []byte(res.Stdout), 0600); err != nil {
		return dumpStats{}, fmt.Errorf("%w: %v", errors.ErrDumpFailed, err)
	}
	return dumpStats{
		SizeBytes: int64(len(res.Stdout)),
		Tables:    strings.Count(res.Stdout, "CREATE TABLE"),
	}, nil
}

// reloadDatabase feeds a dump file back into the running database
// container.
func (m *Manager) reloadDatabase(ctx context.Context, project *workspace.Project, path string) error {
	dump, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database dump: %w", err)
	}
	defer dump.Close()

	creds, err := m.ws.LoadCredentials()
	if err != nil {
		return err
	}

	service := project.Stack.DatabaseService()
	var cmd []string
	switch project.Database.Engine {
	case "postgres":
		cmd = []string{"psql", "-U", project.Database.User, "-d", project.Database.Name}
	default:
		cmd = []string{"mysql", "-uroot", "-p" + creds.DBRootPassword, project.Database.Name}
	}

	if _, err := m.orch.ExecInput(ctx, service, dump, cmd...); err != nil {
		return fmt.Errorf("failed to reload database: %w", err)
	}
	return nil
}

// readMetadata loads the metadata document of one snapshot directory.
// A missing document surfaces as an os.IsNotExist error.
func readMetadata(dir string) (Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse snapshot metadata: %w", err)
	}
	return snap, nil
}

// writeMetadata writes the metadata document into the snapshot
// directory atomically.
func writeMetadata(dir string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot metadata: %w", err)
	}

	path := filepath.Join(dir, metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}
	return nil
}
