// Package validate provides input validation for localdeck.
package validate

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/localdeck/localdeck/internal/errors"
)

// projectNameRegexSingle validates single-character project names.
var projectNameRegexSingle = regexp.MustCompile(`^[a-z0-9]$`)

// projectNameRegexMulti validates multi-character project names (2-64 chars).
// Must start and end with alphanumeric, middle can have hyphens.
var projectNameRegexMulti = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}[a-z0-9]$`)

// domainRegex validates dotted host names such as "miapp.local".
var domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// ProjectName validates a project name.
// Project names must be:
// - 1-64 characters long
// - Lowercase alphanumeric with hyphens
// - Start and end with an alphanumeric character
// - No path traversal characters
func ProjectName(name string) error {
	if name == "" {
		return errors.ErrInvalidProjectName
	}

	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("%w: path traversal not allowed", errors.ErrInvalidProjectName)
	}

	if len(name) == 1 {
		if !projectNameRegexSingle.MatchString(name) {
			return errors.ErrInvalidProjectName
		}
		return nil
	}

	if !projectNameRegexMulti.MatchString(name) {
		return errors.ErrInvalidProjectName
	}

	return nil
}

// NormalizeProjectName derives a valid project name from free-form input,
// lowercasing and replacing runs of invalid characters with hyphens.
func NormalizeProjectName(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	var b strings.Builder
	lastHyphen := true // suppress leading hyphens
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// Domain validates a domain name such as "miapp.local".
func Domain(domain string) error {
	if domain == "" || len(domain) > 253 {
		return errors.ErrInvalidDomain
	}
	if !domainRegex.MatchString(domain) {
		return fmt.Errorf("%w: %s", errors.ErrInvalidDomain, domain)
	}
	return nil
}

// RepoURL validates a git repository URL (https, http, git, or SSH form).
func RepoURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty URL", errors.ErrInvalidRepoURL)
	}

	// SSH URL format (git@host:path)
	if strings.HasPrefix(rawURL, "git@") {
		parts := strings.SplitN(rawURL, ":", 2)
		if len(parts) != 2 || parts[1] == "" {
			return fmt.Errorf("%w: malformed SSH URL", errors.ErrInvalidRepoURL)
		}
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRepoURL, err)
	}
	switch u.Scheme {
	case "http", "https", "git", "ssh":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", errors.ErrInvalidRepoURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", errors.ErrInvalidRepoURL)
	}
	return nil
}

// ServiceName validates a compose service name argument.
func ServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n/\\") {
		return fmt.Errorf("service name contains invalid characters: %q", name)
	}
	return nil
}

// ComposeFilePrecedence returns the list of compose file names to check, in order.
func ComposeFilePrecedence() []string {
	return []string{
		"docker-compose.yml",
		"docker-compose.yaml",
		"compose.yaml",
		"compose.yml",
	}
}

// FindComposeFile finds the first existing compose file in the given directory.
func FindComposeFile(dir string) (string, error) {
	for _, name := range ComposeFilePrecedence() {
		fullPath := filepath.Join(dir, name)
		if _, err := os.Stat(fullPath); err == nil {
			return name, nil
		}
	}
	return "", errors.ErrComposeFileNotFound
}
