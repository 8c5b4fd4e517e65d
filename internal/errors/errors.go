// Package errors provides sentinel errors for localdeck operations.
package errors

import "errors"

// Project errors
var (
	// ErrNoActiveProject indicates no project has been initialized.
	ErrNoActiveProject = errors.New("no active project")

	// ErrProjectExists indicates a project is already active.
	ErrProjectExists = errors.New("a project is already active")

	// ErrInvalidProjectName indicates the project name does not match validation rules.
	ErrInvalidProjectName = errors.New("invalid project name: must be lowercase alphanumeric with hyphens, 1-64 characters")

	// ErrInvalidDomain indicates the domain name is malformed.
	ErrInvalidDomain = errors.New("invalid domain format")

	// ErrInvalidRepoURL indicates the repository URL is malformed.
	ErrInvalidRepoURL = errors.New("invalid repository URL")

	// ErrUnknownStack indicates the stack kind is not one of the supported values.
	ErrUnknownStack = errors.New("unknown stack")
)

// Pipeline errors
var (
	// ErrPipelineRunning indicates another deploy pipeline is already in flight.
	ErrPipelineRunning = errors.New("pipeline already running")

	// ErrRunNotFound indicates the requested deploy run does not exist in history.
	ErrRunNotFound = errors.New("deploy run not found")
)

// Git errors
var (
	// ErrGitNotFound indicates git CLI is not available.
	ErrGitNotFound = errors.New("git command not found")

	// ErrGitCloneFailed indicates the git clone operation failed.
	ErrGitCloneFailed = errors.New("git clone failed")

	// ErrGitPullFailed indicates the git pull operation failed.
	ErrGitPullFailed = errors.New("git pull failed")

	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
)

// Compose errors
var (
	// ErrComposeNotFound indicates docker compose CLI is not available.
	ErrComposeNotFound = errors.New("docker compose command not found")

	// ErrComposeFileNotFound indicates no compose file was found for the project.
	ErrComposeFileNotFound = errors.New("compose file not found")

	// ErrComposeInvalid indicates the compose file is invalid.
	ErrComposeInvalid = errors.New("compose file is invalid")

	// ErrServiceNotFound indicates the named service is absent from the service set.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceNotRunning indicates the named service has no running container.
	ErrServiceNotRunning = errors.New("service not running")
)

// Backup errors
var (
	// ErrSnapshotNotFound indicates the requested backup snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrDumpFailed indicates the database dump could not be taken.
	ErrDumpFailed = errors.New("database dump failed")
)
