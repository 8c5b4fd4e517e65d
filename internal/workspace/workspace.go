package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/localdeck/localdeck/internal/errors"
	"github.com/localdeck/localdeck/internal/validate"
)

const (
	projectFile     = "project.json"
	credentialsFile = "credentials.json"
	historyFile     = "deploy-history.json"
)

// Workspace is the on-disk home of the active project. It is the
// single-slot store: one Project descriptor plus a presence flag,
// handed to every component constructor.
type Workspace struct {
	dir string
}

// New creates a Workspace rooted at dir. The directory is not created
// until a project is saved.
func New(dir string) *Workspace {
	return &Workspace{dir: dir}
}

var _ Store = (*Workspace)(nil)

// Dir returns the workspace root directory.
func (w *Workspace) Dir() string { return w.dir }

// BackendDir returns the backend source tree path.
func (w *Workspace) BackendDir() string { return filepath.Join(w.dir, "backend") }

// FrontendDir returns the frontend source tree path.
func (w *Workspace) FrontendDir() string { return filepath.Join(w.dir, "frontend") }

// HistoryFile returns the deploy history ledger path.
func (w *Workspace) HistoryFile() string { return filepath.Join(w.dir, historyFile) }

// ComposeFile returns the name of the project's compose file, searching
// the standard precedence list.
func (w *Workspace) ComposeFile() (string, error) {
	return validate.FindComposeFile(w.dir)
}

// Exists reports whether a project is currently active.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(filepath.Join(w.dir, projectFile))
	return err == nil
}

// Load reads the active project descriptor.
func (w *Workspace) Load() (*Project, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, projectFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNoActiveProject
		}
		return nil, fmt.Errorf("failed to read project descriptor: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project descriptor: %w", err)
	}
	return &p, nil
}

// Save writes the project descriptor atomically, assigning an ID on
// first save and refreshing the updated timestamp.
func (w *Workspace) Save(p *Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return writeJSON(filepath.Join(w.dir, projectFile), p)
}

// LoadCredentials reads the generated credentials document.
func (w *Workspace) LoadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, credentialsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNoActiveProject
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &c, nil
}

// SaveCredentials writes the credentials document with owner-only
// permissions.
func (w *Workspace) SaveCredentials(c *Credentials) error {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	path := filepath.Join(w.dir, credentialsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return os.Rename(tmp, path)
}

// Remove deletes the entire workspace directory. Used by destroy.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	return nil
}

// writeJSON writes v as indented JSON via a temp file and rename, so a
// crashed write never leaves a truncated descriptor behind.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
