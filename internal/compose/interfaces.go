package compose

import (
	"context"
	"io"
	"time"

	"github.com/localdeck/localdeck/internal/runner"
)

// Orchestrator defines compose operations for a single project.
type Orchestrator interface {
	ProjectName() string
	ComposeFilePath() string
	Services(ctx context.Context) (*ServiceSet, error)
	Up(ctx context.Context, opts UpOptions) error
	Down(ctx context.Context, removeVolumes bool) error
	Restart(ctx context.Context, service string) error
	Build(ctx context.Context) error
	Status(ctx context.Context) ([]ServiceState, error)
	IsRunning(ctx context.Context) (bool, error)
	WaitHealthy(ctx context.Context, timeout time.Duration) error
	Logs(ctx context.Context, service string, follow bool, tail int) (string, error)
	Exec(ctx context.Context, service string, command ...string) (*runner.Result, error)
	ExecInput(ctx context.Context, service string, stdin io.Reader, command ...string) (*runner.Result, error)
	ExecInteractive(ctx context.Context, service string) (int, error)
	Validate(ctx context.Context, envFile string) error
}
