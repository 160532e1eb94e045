package history

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/conceptual/internal/git"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/validator"
)

// DefaultKeep is how many runs per project Record retains.
const DefaultKeep = 200

// Recorder turns validation results into saved runs.
type Recorder struct {
	repo    RunRepository
	git     git.Executor
	project string
	keep    int
	clock   func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithGit stamps runs with the HEAD commit of the repository.
func WithGit(executor git.Executor) RecorderOption {
	return func(r *Recorder) {
		r.git = executor
	}
}

// WithKeep sets how many runs are retained per project. Zero keeps all.
func WithKeep(keep int) RecorderOption {
	return func(r *Recorder) {
		r.keep = keep
	}
}

// WithClock overrides the run timestamp source.
func WithClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// NewRecorder creates a Recorder writing runs for project into repo.
func NewRecorder(repo RunRepository, project string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		repo:    repo,
		project: project,
		keep:    DefaultKeep,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is what one validation produced. Summary holds the rule issue
// counts, which alone decide the outcome.
type Result struct {
	Command  string
	NoDrafts bool
	State    *state.ProjectState
	Summary  validator.Summary
}

// CountsOf tallies a result.
func CountsOf(res Result) Counts {
	c := Counts{
		Errors:   res.Summary.Errors,
		Warnings: res.Summary.Warnings,
		Infos:    res.Summary.Infos,
	}
	if res.State == nil {
		return c
	}
	c.Concepts = len(res.State.Concepts)
	c.Relationships = len(res.State.Relationships)
	c.Models = len(res.State.Models)
	c.Orphans = len(res.State.Orphans)
	for _, concept := range res.State.Concepts {
		if concept.IsGhost {
			c.Ghosts++
		}
	}
	return c
}

// Record saves a run for res and prunes old runs.
func (r *Recorder) Record(ctx context.Context, res Result) (*Run, error) {
	run := NewRun(r.project, res.Command, CountsOf(res), r.clock())
	run.NoDrafts = res.NoDrafts
	run.Commit = r.headCommit(ctx)

	if err := r.repo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	log.Debug(log.CatDB, "Recorded run", "guid", run.GUID, "outcome", run.Outcome, "commit", run.Commit)

	if r.keep > 0 {
		removed, err := r.repo.Prune(ctx, r.project, r.keep)
		if err != nil {
			log.Warn(log.CatDB, "Failed to prune run history", "error", err)
		} else if removed > 0 {
			log.Debug(log.CatDB, "Pruned run history", "removed", removed)
		}
	}
	return run, nil
}

// List returns the project's runs, newest first.
func (r *Recorder) List(ctx context.Context, filter ListFilter) ([]*Run, error) {
	return r.repo.List(ctx, r.project, filter)
}

func (r *Recorder) headCommit(ctx context.Context) string {
	if r.git == nil || !r.git.IsGitRepo(ctx) {
		return ""
	}
	commit, err := r.git.ResolveRef(ctx, "HEAD")
	if err != nil {
		// Fresh repositories have no HEAD commit yet.
		log.Debug(log.CatGit, "No HEAD commit for run", "error", err)
		return ""
	}
	return commit
}
