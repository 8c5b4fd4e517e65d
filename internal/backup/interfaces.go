package backup

import "context"

// Archiver defines the snapshot operations used by the CLI and pipeline.
type Archiver interface {
	Create(ctx context.Context, name string, includeDB bool) (Snapshot, error)
	List() ([]Snapshot, error)
	Get(id string) (Snapshot, error)
	Restore(ctx context.Context, id string, includeDB bool) error
	Delete(id string) error
	Prune(keep int) ([]string, error)
}

var _ Archiver = (*Manager)(nil)
