package presentation

import (
	"time"

	"github.com/zjrosen/conceptual/internal/history"
)

// RunDTO is one recorded validation run.
type RunDTO struct {
	GUID          string    `json:"guid"`
	Command       string    `json:"command"`
	Commit        string    `json:"commit,omitempty"`
	NoDrafts      bool      `json:"no_drafts"`
	Outcome       string    `json:"outcome"`
	Concepts      int       `json:"concepts"`
	Relationships int       `json:"relationships"`
	Models        int       `json:"models"`
	Orphans       int       `json:"orphans"`
	Ghosts        int       `json:"ghosts"`
	Errors        int       `json:"errors"`
	Warnings      int       `json:"warnings"`
	Infos         int       `json:"info"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromRuns converts runs for JSON output.
func FromRuns(runs []*history.Run) []RunDTO {
	out := make([]RunDTO, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunDTO{
			GUID:          r.GUID,
			Command:       r.Command,
			Commit:        r.Commit,
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
			CreatedAt:     r.CreatedAt.UTC(),
		})
	}
	return out
}

// Runs writes recorded runs as a table, newest first.
func (f *Formatter) Runs(runs []*history.Run) error {
	s := f.styles
	var b builder

	if len(runs) == 0 {
		b.line("%s", s.Muted.Render("No runs recorded."))
		return f.flush(&b)
	}

	b.line("%s", s.Header.Render("Validation History"))
	b.line("%s", rule)
	b.line("%-8s  %-19s  %-8s  %-7s  %-6s  %8s  %8s  %8s",
		"RUN", "WHEN", "COMMIT", "CMD", "RESULT", "CONCEPTS", "ERRORS", "WARNINGS")
	for _, r := range runs {
		commit := r.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		if commit == "" {
			commit = "-"
		}
		result := s.Success.Render("pass  ")
		if r.Outcome == history.OutcomeFailed {
			result = s.Error.Render("fail  ")
		}
		b.line("%-8s  %-19s  %-8s  %-7s  %s  %8d  %8d  %8d",
			r.ShortGUID(),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			commit,
			r.Command,
			result,
			r.Counts.Concepts,
			r.Counts.Errors,
			r.Counts.Warnings,
		)
	}
	return f.flush(&b)
}
