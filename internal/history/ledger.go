// Package history records deployment runs in a JSON ledger.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/localdeck/localdeck/internal/errors"
)

// RevisionPair holds the commit of a repo before and after a deploy.
type RevisionPair struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// DeployRun is one recorded deployment attempt.
type DeployRun struct {
	ID              int          `json:"id"`
	Timestamp       time.Time    `json:"timestamp"`
	Success         bool         `json:"success"`
	DurationSeconds float64      `json:"duration_seconds"`
	Backend         RevisionPair `json:"backend"`
	Frontend        RevisionPair `json:"frontend"`
	Changes         []string     `json:"changes,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`
	Error           string       `json:"error,omitempty"`
	Flags           []string     `json:"flags,omitempty"`
}

// Ledger is an append-only record of deploy runs backed by a JSON file.
// IDs are monotonically increasing and survive reopening the file.
type Ledger struct {
	path string
}

// NewLedger creates a ledger backed by the given file path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Append records a run, assigns it the next id, and returns the stored run.
func (l *Ledger) Append(run DeployRun) (DeployRun, error) {
	runs, err := l.load()
	if err != nil {
		return DeployRun{}, err
	}

	maxID := 0
	for _, r := range runs {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	run.ID = maxID + 1
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}

	runs = append(runs, run)
	if err := l.save(runs); err != nil {
		return DeployRun{}, err
	}
	return run, nil
}

// List returns runs newest first. A limit of 0 returns all runs.
func (l *Ledger) List(limit int) ([]DeployRun, error) {
	runs, err := l.load()
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ID > runs[j].ID
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Get returns the run with the given id.
func (l *Ledger) Get(id int) (DeployRun, error) {
	runs, err := l.load()
	if err != nil {
		return DeployRun{}, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return DeployRun{}, fmt.Errorf("%w: %d", errors.ErrRunNotFound, id)
}

// Last returns the most recent run, or ErrRunNotFound when the ledger
// is empty.
func (l *Ledger) Last() (DeployRun, error) {
	runs, err := l.List(1)
	if err != nil {
		return DeployRun{}, err
	}
	if len(runs) == 0 {
		return DeployRun{}, errors.ErrRunNotFound
	}
	return runs[0], nil
}

// load reads all runs from disk. A missing file is an empty ledger.
func (l *Ledger) load() ([]DeployRun, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var runs []DeployRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return runs, nil
}

// save writes the full ledger via a temp file and rename.
func (l *Ledger) save(runs []DeployRun) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
