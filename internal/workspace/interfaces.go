package workspace

// Store defines the single-slot active project contract consumed by the
// pipeline, backup, and command layers.
type Store interface {
	Dir() string
	BackendDir() string
	FrontendDir() string
	HistoryFile() string
	ComposeFile() (string, error)
	Exists() bool
	Load() (*Project, error)
	Save(p *Project) error
	LoadCredentials() (*Credentials, error)
	SaveCredentials(c *Credentials) error
	Remove() error
}
