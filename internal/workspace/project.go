// Package workspace manages the single active project: its descriptor,
// credentials, and on-disk layout. At most one project is active at a
// time; every lifecycle, backup, and history operation is scoped to it.
package workspace

import (
	"fmt"
	"time"

	"github.com/localdeck/localdeck/internal/config"
	"github.com/localdeck/localdeck/internal/errors"
)

// Stack identifies the technology stack of a project.
type Stack string

// Supported stacks.
const (
	StackLaravelVue    Stack = "laravel-vue"
	StackSpringBootVue Stack = "springboot-vue"
)

// ParseStack validates a stack name.
func ParseStack(s string) (Stack, error) {
	switch Stack(s) {
	case StackLaravelVue, StackSpringBootVue:
		return Stack(s), nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s, %s)",
			errors.ErrUnknownStack, s, StackLaravelVue, StackSpringBootVue)
	}
}

// DatabaseService returns the compose service name of the stack's database.
func (s Stack) DatabaseService() string {
	if s == StackSpringBootVue {
		return "postgres"
	}
	return "mysql"
}

// DatabaseEngine returns the database engine name for the stack.
func (s Stack) DatabaseEngine() string {
	if s == StackSpringBootVue {
		return "postgres"
	}
	return "mysql"
}

// AppService returns the compose service name of the application runtime.
func (s Stack) AppService() string {
	if s == StackSpringBootVue {
		return "springboot"
	}
	return "php"
}

// FrontendTarget returns the path, relative to the backend tree, where
// built frontend assets are served from.
func (s Stack) FrontendTarget() string {
	if s == StackSpringBootVue {
		return "src/main/resources/static"
	}
	return "public/app"
}

// Repos holds the two source repository URLs of a project.
type Repos struct {
	Backend  string `json:"backend"`
	Frontend string `json:"frontend"`
}

// Database describes the project's database connection. The password
// lives in the credentials document, not here.
type Database struct {
	Engine string `json:"engine"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Name   string `json:"name"`
	User   string `json:"user"`
}

// Revisions holds the backend/frontend commit pair recorded at the last
// successful deploy.
type Revisions struct {
	Backend  string `json:"backend"`
	Frontend string `json:"frontend"`
}

// Project is the descriptor of the single active deployment unit.
type Project struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Stack      Stack        `json:"stack"`
	Domain     string       `json:"domain"`
	Repos      Repos        `json:"repos"`
	Ports      config.Ports `json:"ports"`
	Database   Database     `json:"database"`
	SSLEnabled bool         `json:"ssl"`
	Commits    Revisions    `json:"git_commits"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	LastDeploy *time.Time   `json:"last_deploy,omitempty"`
}
