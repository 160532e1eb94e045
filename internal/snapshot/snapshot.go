// Package snapshot loads the conceptual model as it existed at a git ref
// and diffs it against the working tree.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/conceptual/internal/cachemanager"
	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/differ"
	"github.com/zjrosen/conceptual/internal/git"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/parser"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/tracing"
)

// CacheTTL is how long a parsed snapshot stays cached. Commits are
// immutable so the TTL only bounds memory in long watch sessions.
const CacheTTL = 30 * time.Minute

// Snapshot is the declared model at a commit. Models are never scanned
// for snapshots, so State holds no model links or orphans.
type Snapshot struct {
	Ref    string
	Commit string
	Path   string
	State  *state.ProjectState
}

type loadInput struct {
	ref    string
	commit string
	path   string
}

// Loader reads conceptual.yml from git history.
type Loader struct {
	git            git.Executor
	conceptualFile string
	tracer         trace.Tracer
	cache          *cachemanager.ReadThroughCache[*Snapshot, loadInput]
	stats          func() cachemanager.Stats
}

// Option configures a Loader.
type Option func(*Loader)

// WithTracer sets the tracer for snapshot spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Loader) {
		l.tracer = tracer
	}
}

// WithCache replaces the default in-memory snapshot cache.
func WithCache(cache cachemanager.CacheManager[*Snapshot]) Option {
	return func(l *Loader) {
		l.cache = cachemanager.NewReadThroughCache[*Snapshot, loadInput](cache, l.load, false)
		l.stats = cache.Stats
	}
}

// NewLoader returns a Loader for the conceptual file of cfg.
func NewLoader(executor git.Executor, cfg config.Config, opts ...Option) *Loader {
	l := &Loader{
		git:            executor,
		conceptualFile: cfg.ConceptualFile(),
	}
	cache := cachemanager.NewInMemoryCacheManager[*Snapshot]("snapshots", CacheTTL, cachemanager.DefaultCleanupInterval)
	l.cache = cachemanager.NewReadThroughCache[*Snapshot, loadInput](cache, l.load, false)
	l.stats = cache.Stats
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CacheStats reports snapshot cache usage.
func (l *Loader) CacheStats() cachemanager.Stats {
	return l.stats()
}

// Load returns the model declared at ref. Errors match git.ErrGitNotFound,
// git.ErrNotGitRepo or git.ErrRefNotFound. The returned state is a private
// copy the caller may mutate.
func (l *Loader) Load(ctx context.Context, ref string) (snap *Snapshot, err error) {
	ctx, span := tracing.Start(ctx, l.tracer, tracing.SpanSnapshot, attribute.String(tracing.AttrGitRef, ref))
	defer func() { tracing.End(span, err) }()

	root, err := l.git.RepoRoot(ctx)
	if err != nil {
		if errors.Is(err, git.ErrGitNotFound) || errors.Is(err, git.ErrNotGitRepo) || errors.Is(err, git.ErrGitTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", git.ErrNotGitRepo, err)
	}

	rel, err := relativeTo(root, l.conceptualFile)
	if err != nil {
		return nil, err
	}

	commit, err := l.git.ResolveRef(ctx, ref)
	if err != nil {
		var rnf *git.RefNotFoundError
		if errors.As(err, &rnf) {
			rnf.Path = rel
		}
		return nil, err
	}
	span.SetAttributes(attribute.String(tracing.AttrGitCommit, commit))

	cached, hit, err := l.cache.Get(ctx, commit+":"+rel, loadInput{ref: ref, commit: commit, path: rel}, CacheTTL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))

	log.Debug(log.CatGit, "Loaded snapshot", "ref", ref, "commit", commit, "cache_hit", hit)
	return &Snapshot{
		Ref:    ref,
		Commit: cached.Commit,
		Path:   cached.Path,
		State:  cached.State.Clone(),
	}, nil
}

func (l *Loader) load(ctx context.Context, in loadInput) (*Snapshot, error) {
	content, err := l.git.ShowFile(ctx, in.commit, in.path)
	if err != nil {
		var rnf *git.RefNotFoundError
		if errors.As(err, &rnf) {
			rnf.Ref = in.ref
			rnf.Path = in.path
		}
		return nil, err
	}

	st, err := parser.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s at %s: %w", in.path, in.ref, err)
	}
	return &Snapshot{Ref: in.ref, Commit: in.commit, Path: in.path, State: st}, nil
}

// relativeTo returns file relative to root, resolving symlinks on both so
// temp dirs and checkouts behind links still line up.
func relativeTo(root, file string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	dir := filepath.Dir(file)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		file = filepath.Join(resolved, filepath.Base(file))
	}

	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("locating %s in repository: %w", file, err)
	}
	return filepath.ToSlash(rel), nil
}

// CurrentSource builds the working-tree state to diff against.
type CurrentSource interface {
	Build(ctx context.Context) (*state.ProjectState, error)
}

// DiffAgainstRef builds the current state, loads the state at ref and
// diffs them. Ghosts are not created on either side.
func DiffAgainstRef(ctx context.Context, current CurrentSource, loader *Loader, ref string) (cs differ.ChangeSet, err error) {
	ctx, span := tracing.Start(ctx, loader.tracer, tracing.SpanDiff, attribute.String(tracing.AttrGitRef, ref))
	defer func() { tracing.End(span, err) }()

	cur, err := current.Build(ctx)
	if err != nil {
		return differ.ChangeSet{}, err
	}

	base, err := loader.Load(ctx, ref)
	if err != nil {
		return differ.ChangeSet{}, err
	}

	cs = differ.Diff(base.State, cur)
	counts := cs.Counts()
	span.SetAttributes(attribute.Int(tracing.AttrChanges, counts[differ.Added]+counts[differ.Removed]+counts[differ.Modified]))
	return cs, nil
}
