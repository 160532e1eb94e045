// Package history records validation runs so trends in a project's
// conceptual model can be listed over time.
//
// The package holds the Run entity, the RunRepository persistence interface
// and the Recorder service. Storage lives in internal/infrastructure/sqlite.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of a recorded run.
type Outcome string

const (
	// OutcomePassed means the run produced no errors.
	OutcomePassed Outcome = "passed"

	// OutcomeFailed means the run produced at least one error.
	OutcomeFailed Outcome = "failed"
)

// IsValid returns true if the outcome is a recognized value.
func (o Outcome) IsValid() bool {
	return o == OutcomePassed || o == OutcomeFailed
}

// Counts are the model and diagnostic totals captured by a run.
type Counts struct {
	Concepts      int
	Relationships int
	Models        int
	Orphans       int
	Ghosts        int
	Errors        int
	Warnings      int
	Infos         int
}

// Run is one recorded validation.
type Run struct {
	ID        int64
	GUID      string
	Project   string
	Command   string
	Commit    string // empty outside a git repository
	NoDrafts  bool
	Outcome   Outcome
	Counts    Counts
	CreatedAt time.Time
}

// NewRun creates an unsaved run with a fresh GUID. The outcome follows the
// error count.
func NewRun(project, command string, counts Counts, createdAt time.Time) *Run {
	outcome := OutcomePassed
	if counts.Errors > 0 {
		outcome = OutcomeFailed
	}
	return &Run{
		GUID:      uuid.NewString(),
		Project:   project,
		Command:   command,
		Outcome:   outcome,
		Counts:    counts,
		CreatedAt: createdAt,
	}
}

// ShortGUID returns the first block of the GUID for display.
func (r *Run) ShortGUID() string {
	if len(r.GUID) < 8 {
		return r.GUID
	}
	return r.GUID[:8]
}

// ListFilter provides filtering options for listing runs.
type ListFilter struct {
	// Command filters runs by the command that recorded them.
	// If empty, all commands are included.
	Command string

	// FailedOnly restricts results to runs with errors.
	FailedOnly bool

	// Limit restricts the number of runs returned.
	// If 0, no limit is applied.
	Limit int
}

// RunRepository defines the persistence interface for runs.
type RunRepository interface {
	// Save inserts a new run and sets its ID.
	Save(ctx context.Context, run *Run) error

	// FindByGUID retrieves a run by GUID within a project.
	// Returns RunNotFoundError if no matching run exists.
	FindByGUID(ctx context.Context, project, guid string) (*Run, error)

	// List returns runs for a project, newest first.
	List(ctx context.Context, project string, filter ListFilter) ([]*Run, error)

	// Prune deletes all but the newest keep runs of a project and returns
	// the number removed.
	Prune(ctx context.Context, project string, keep int) (int, error)
}

// RunNotFoundError is returned when a run lookup finds nothing.
type RunNotFoundError struct {
	Project string
	GUID    string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s (project %s)", e.GUID, e.Project)
}
