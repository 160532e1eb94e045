package testutil

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// GitRepo runs git commands in a test directory.
type GitRepo struct {
	t   *testing.T
	dir string
}

// InitGitRepo turns dir into a git repository on branch main. The test is
// skipped when git is not installed.
func InitGitRepo(t *testing.T, dir string) *GitRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := &GitRepo{t: t, dir: dir}
	r.Run("init", "-q", "-b", "main")
	return r
}

// Dir returns the repository root.
func (r *GitRepo) Dir() string { return r.dir }

// Run runs git in the repository and fails the test on error.
func (r *GitRepo) Run(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, "git %v: %s", args, out)
	return string(out)
}

// CommitAll stages every file and commits it.
func (r *GitRepo) CommitAll(msg string) *GitRepo {
	r.t.Helper()
	r.Run("add", ".")
	r.Run("commit", "-q", "-m", msg)
	return r
}
