// Package git reads historical file contents from a git repository by
// shelling out to the git binary.
package git

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrGitNotFound indicates the git binary is not installed or not on PATH.
	ErrGitNotFound = errors.New("git not found")

	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrRefNotFound matches any *RefNotFoundError via errors.Is.
	ErrRefNotFound = errors.New("ref not found")

	// ErrGitTimeout indicates the context expired while git was running.
	ErrGitTimeout = errors.New("git command timed out")
)

// RefNotFoundError reports that a ref, or a path at that ref, does not exist.
type RefNotFoundError struct {
	Ref    string
	Path   string // empty when the ref itself could not be resolved
	Stderr string
}

func (e *RefNotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("could not resolve ref '%s'", e.Ref)
	}
	return fmt.Sprintf("could not find %s at ref '%s'", e.Path, e.Ref)
}

// Is lets errors.Is(err, ErrRefNotFound) match.
func (e *RefNotFoundError) Is(target error) bool {
	return target == ErrRefNotFound
}

// Executor defines the git operations needed to load historical snapshots.
// This abstraction allows for easy testing with fake implementations.
type Executor interface {
	IsGitRepo(ctx context.Context) bool
	// RepoRoot returns the absolute path of the repository top level.
	RepoRoot(ctx context.Context) (string, error)
	// ResolveRef returns the full commit hash ref points at.
	ResolveRef(ctx context.Context, ref string) (string, error)
	// ShowFile returns the contents of path, relative to the repository
	// root, at ref.
	ShowFile(ctx context.Context, ref, path string) (string, error)
}
