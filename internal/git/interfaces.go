package git

import "context"

// Operations defines git operations for a single checkout.
type Operations interface {
	RepoPath() string
	IsGitRepo(ctx context.Context) bool
	Clone(ctx context.Context, url string) error
	Pull(ctx context.Context) error
	CurrentCommit(ctx context.Context) (string, error)
	CurrentCommitShort(ctx context.Context) (string, error)
	ChangedSince(ctx context.Context, previous string) (bool, error)
	RemoteURL(ctx context.Context) (string, error)
}
