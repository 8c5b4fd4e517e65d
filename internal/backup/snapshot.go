// Package backup creates and restores point-in-time snapshots of the
// active project: source trees, rendered configuration, and a live
// database dump. Each snapshot directory is self-contained and carries
// its own metadata document, so a snapshot can be inspected or restored
// without any external index.
package backup

import (
	"sort"
	"time"
)

// snapshotIDFormat makes IDs lexically sortable by creation time.
const snapshotIDFormat = "20060102_150405"

// Revisions holds the short commit identifiers of both source trees at
// capture time. Empty when a tree is not a git checkout.
type Revisions struct {
	Backend  string `json:"backend,omitempty"`
	Frontend string `json:"frontend,omitempty"`
}

// Snapshot is the metadata record of one backup, stored as
// backup-metadata.json inside the snapshot directory.
type Snapshot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ProjectName   string    `json:"project_name"`
	Stack         string    `json:"stack"`
	Commits       Revisions `json:"commits"`
	IncludesDB    bool      `json:"includes_db"`
	DumpSizeBytes int64     `json:"dump_size_bytes,omitempty"`
	DumpTables    int       `json:"dump_tables,omitempty"`
	SizeBytes     int64     `json:"size_bytes"`
	Location      string    `json:"location"`
}

// snapshotID builds an ID from a timestamp and optional name suffix.
func snapshotID(t time.Time, name string) string {
	id := t.Format(snapshotIDFormat)
	if name != "" {
		id += "_" + name
	}
	return id
}

// sortNewestFirst orders snapshots by ID descending. IDs embed the
// creation timestamp, so lexical order is chronological order.
func sortNewestFirst(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].ID > snaps[j].ID
	})
}
