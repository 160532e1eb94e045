package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zjrosen/conceptual/internal/log"
)

// Compile-time check that RealExecutor implements Executor.
var _ Executor = (*RealExecutor)(nil)

// RealExecutor implements Executor by executing actual git commands.
type RealExecutor struct {
	workDir string
	binary  string
}

// NewRealExecutor creates a new RealExecutor running git in workDir.
func NewRealExecutor(workDir string) *RealExecutor {
	return &RealExecutor{workDir: workDir, binary: "git"}
}

// runGit executes a git command and returns trimmed stdout.
func (e *RealExecutor) runGit(ctx context.Context, args ...string) (string, error) {
	out, err := e.runGitRaw(ctx, args...)
	return strings.TrimSpace(out), err
}

// runGitRaw executes a git command and returns stdout untouched.
func (e *RealExecutor) runGitRaw(ctx context.Context, args ...string) (string, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.CommandContext(ctx, e.binary, args...)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug(log.CatGit, "Running git", "args", strings.Join(args, " "), "dir", e.workDir)
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrGitNotFound, err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: git %s: %w", ErrGitTimeout, strings.Join(args, " "), ctx.Err())
		}
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", parseGitError(stderrStr, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return stdout.String(), nil
}

// refMissingMarkers are stderr fragments git prints when a revision or a
// path at a revision does not exist.
var refMissingMarkers = []string{
	"unknown revision",
	"bad revision",
	"invalid object name",
	"ambiguous argument",
	"needed a single revision",
	"does not exist in",
	"exists on disk, but not in",
	"not a valid object name",
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}

	for _, marker := range refMissingMarkers {
		if strings.Contains(stderrLower, marker) {
			return &RefNotFoundError{Stderr: stderr}
		}
	}

	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}

// IsGitRepo checks if the working directory is inside a git repository.
func (e *RealExecutor) IsGitRepo(ctx context.Context) bool {
	_, err := e.runGit(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// RepoRoot returns the root directory of the git repository.
func (e *RealExecutor) RepoRoot(ctx context.Context) (string, error) {
	root, err := e.runGit(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(root), nil
}

// ResolveRef returns the commit hash for ref.
func (e *RealExecutor) ResolveRef(ctx context.Context, ref string) (string, error) {
	hash, err := e.runGit(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		var rnf *RefNotFoundError
		if errors.As(err, &rnf) {
			rnf.Ref = ref
			return "", rnf
		}
		return "", err
	}
	return hash, nil
}

// ShowFile returns the content of path at ref. path is relative to the
// repository root and always uses forward slashes on the git side.
func (e *RealExecutor) ShowFile(ctx context.Context, ref, path string) (string, error) {
	gitPath := filepath.ToSlash(path)
	out, err := e.runGitRaw(ctx, "show", ref+":"+gitPath)
	if err != nil {
		var rnf *RefNotFoundError
		if errors.As(err, &rnf) {
			rnf.Ref = ref
			rnf.Path = gitPath
			return "", rnf
		}
		return "", err
	}
	return out, nil
}
