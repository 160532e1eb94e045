package sqlite

import (
	"time"

	"github.com/zjrosen/conceptual/internal/history"
)

// RunModel represents the database row for the runs table.
// Time values are stored as Unix timestamps.
type RunModel struct {
	ID        int64
	GUID      string
	Project   string
	Command   string
	GitCommit *string // nullable
	NoDrafts  bool
	Outcome   string

	Concepts      int
	Relationships int
	Models        int
	Orphans       int
	Ghosts        int
	Errors        int
	Warnings      int
	Infos         int

	CreatedAt int64
}

// toRunModel converts a history Run to a database RunModel.
func toRunModel(r *history.Run) *RunModel {
	m := &RunModel{
		ID:            r.ID,
		GUID:          r.GUID,
		Project:       r.Project,
		Command:       r.Command,
		NoDrafts:      r.NoDrafts,
		Outcome:       string(r.Outcome),
		Concepts:      r.Counts.Concepts,
		Relationships: r.Counts.Relationships,
		Models:        r.Counts.Models,
		Orphans:       r.Counts.Orphans,
		Ghosts:        r.Counts.Ghosts,
		Errors:        r.Counts.Errors,
		Warnings:      r.Counts.Warnings,
		Infos:         r.Counts.Infos,
		CreatedAt:     r.CreatedAt.Unix(),
	}
	if r.Commit != "" {
		commit := r.Commit
		m.GitCommit = &commit
	}
	return m
}

// toHistory converts a database RunModel to a history Run.
func (m *RunModel) toHistory() *history.Run {
	var commit string
	if m.GitCommit != nil {
		commit = *m.GitCommit
	}
	return &history.Run{
		ID:       m.ID,
		GUID:     m.GUID,
		Project:  m.Project,
		Command:  m.Command,
		Commit:   commit,
		NoDrafts: m.NoDrafts,
		Outcome:  history.Outcome(m.Outcome),
		Counts: history.Counts{
			Concepts:      m.Concepts,
			Relationships: m.Relationships,
			Models:        m.Models,
			Orphans:       m.Orphans,
			Ghosts:        m.Ghosts,
			Errors:        m.Errors,
			Warnings:      m.Warnings,
			Infos:         m.Infos,
		},
		CreatedAt: time.Unix(m.CreatedAt, 0),
	}
}
