package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/conceptual/internal/history"
)

// runColumns is the list of columns to select for run queries.
const runColumns = `id, guid, project, command, git_commit, no_drafts, outcome,
	concepts, relationships, models, orphans, ghosts, errors, warnings, infos, created_at`

// runRepository implements history.RunRepository using SQLite.
type runRepository struct {
	db *sql.DB
}

func newRunRepository(db *sql.DB) *runRepository {
	return &runRepository{db: db}
}

var _ history.RunRepository = (*runRepository)(nil)

// scanRun scans a row into a RunModel.
func scanRun(scanner interface{ Scan(...any) error }) (*RunModel, error) {
	var m RunModel
	err := scanner.Scan(
		&m.ID, &m.GUID, &m.Project, &m.Command, &m.GitCommit, &m.NoDrafts, &m.Outcome,
		&m.Concepts, &m.Relationships, &m.Models, &m.Orphans, &m.Ghosts,
		&m.Errors, &m.Warnings, &m.Infos, &m.CreatedAt,
	)
	return &m, err
}

// Save inserts a run and sets its ID. Runs are immutable once saved.
func (r *runRepository) Save(ctx context.Context, run *history.Run) error {
	if run.ID != 0 {
		return fmt.Errorf("run %s already saved", run.GUID)
	}
	m := toRunModel(run)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (
			guid, project, command, git_commit, no_drafts, outcome,
			concepts, relationships, models, orphans, ghosts, errors, warnings, infos, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.GUID, m.Project, m.Command, m.GitCommit, m.NoDrafts, m.Outcome,
		m.Concepts, m.Relationships, m.Models, m.Orphans, m.Ghosts,
		m.Errors, m.Warnings, m.Infos, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// FindByGUID retrieves a run by GUID within a project.
func (r *runRepository) FindByGUID(ctx context.Context, project, guid string) (*history.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE project = ? AND guid = ?`,
		project, guid,
	)
	m, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &history.RunNotFoundError{Project: project, GUID: guid}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run by guid: %w", err)
	}
	return m.toHistory(), nil
}

// List retrieves runs for a project matching filter, newest first.
func (r *runRepository) List(ctx context.Context, project string, filter history.ListFilter) ([]*history.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE project = ?`
	args := []any{project}

	if filter.Command != "" {
		query += ` AND command = ?`
		args = append(args, filter.Command)
	}
	if filter.FailedOnly {
		query += ` AND outcome = ?`
		args = append(args, string(history.OutcomeFailed))
	}

	// id breaks ties between runs recorded in the same second
	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*history.Run
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, m.toHistory())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// Prune deletes all but the newest keep runs of a project.
func (r *runRepository) Prune(ctx context.Context, project string, keep int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM runs WHERE project = ? AND id NOT IN (
			SELECT id FROM runs WHERE project = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`,
		project, project, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
