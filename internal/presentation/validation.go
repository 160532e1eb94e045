package presentation

import (
	"strings"

	"github.com/zjrosen/conceptual/internal/reconcile"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/validator"
)

// ValidationResult bundles a rule run and the sync pass over one project.
// Sync messages are informational: only rule issues count toward Summary
// and Passed.
type ValidationResult struct {
	// File is the conceptual file annotations point at.
	File    string
	State   *state.ProjectState
	Sync    reconcile.SyncReport
	Issues  []validator.Issue
	Summary validator.Summary
}

// Passed reports whether the rule run produced no error.
func (r ValidationResult) Passed() bool {
	return r.Summary.Errors == 0
}

// IssueDTO is one rule issue in JSON output.
type IssueDTO struct {
	Code     string         `json:"code"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context"`
}

// ValidationDTO is the JSON validation document.
type ValidationDTO struct {
	Passed       bool                `json:"passed"`
	Summary      validator.Summary   `json:"summary"`
	SyncMessages []reconcile.Message `json:"sync_messages"`
	Issues       []IssueDTO          `json:"issues"`
}

// FromValidation converts a result to its JSON document.
func FromValidation(r ValidationResult) ValidationDTO {
	dto := ValidationDTO{
		Passed:       r.Passed(),
		Summary:      r.Summary,
		SyncMessages: r.Sync.Messages,
		Issues:       make([]IssueDTO, 0, len(r.Issues)),
	}
	if dto.SyncMessages == nil {
		dto.SyncMessages = []reconcile.Message{}
	}
	for _, is := range r.Issues {
		ctx := is.Context
		if ctx == nil {
			ctx = map[string]any{}
		}
		dto.Issues = append(dto.Issues, IssueDTO{
			Code:     is.Code,
			Severity: string(is.Severity),
			Message:  is.Message,
			Context:  ctx,
		})
	}
	return dto
}

// Validation writes r in the requested format.
func (f *Formatter) Validation(format Format, r ValidationResult) error {
	switch format {
	case FormatJSON:
		return f.JSON(FromValidation(r))
	case FormatGitHub:
		return f.validationGitHub(r)
	case FormatMarkdown:
		return f.validationMarkdown(r)
	default:
		return f.validationHuman(r)
	}
}

func issuesBySeverity(issues []validator.Issue, sev validator.Severity) []validator.Issue {
	var out []validator.Issue
	for _, is := range issues {
		if is.Severity == sev {
			out = append(out, is)
		}
	}
	return out
}

func syncBySeverity(msgs []reconcile.Message, sev reconcile.Severity) []reconcile.Message {
	var out []reconcile.Message
	for _, m := range msgs {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}

func githubLevel(sev string) string {
	switch sev {
	case "error":
		return "error"
	case "warning":
		return "warning"
	default:
		return "notice"
	}
}

func (f *Formatter) validationGitHub(r ValidationResult) error {
	var b builder
	for _, m := range r.Sync.Messages {
		b.line("::notice file=%s::%s", r.File, m.Text)
	}
	for _, is := range r.Issues {
		b.line("::%s file=%s::[%s] %s", githubLevel(string(is.Severity)), r.File, is.Code, is.Message)
	}
	t := r.Summary
	b.line("Validation complete: %d errors, %d warnings, %d info", t.Errors, t.Warnings, t.Infos)
	return f.flush(&b)
}

func (f *Formatter) validationMarkdown(r ValidationResult) error {
	var b builder
	if r.Passed() {
		b.line("## ✅ Validation Passed")
	} else {
		b.line("## ❌ Validation Failed")
	}
	b.blank()

	t := r.Summary
	b.line("| | Count |")
	b.line("|---|-----|")
	if t.Errors > 0 {
		b.line("| 🔴 Errors | %d |", t.Errors)
	}
	if t.Warnings > 0 {
		b.line("| 🟡 Warnings | %d |", t.Warnings)
	}
	if t.Infos > 0 {
		b.line("| ℹ️  Info | %d |", t.Infos)
	}
	b.blank()

	if len(r.Sync.Messages) > 0 {
		b.line("### Sync")
		b.blank()
		for _, m := range r.Sync.Messages {
			b.line("> **%s** %s", strings.ToUpper(string(m.Severity)), m.Text)
			b.line(">")
		}
		b.blank()
	}

	for _, sec := range []struct {
		title string
		sev   validator.Severity
	}{
		{"Errors", validator.SeverityError},
		{"Warnings", validator.SeverityWarning},
		{"Info", validator.SeverityInfo},
	} {
		issues := issuesBySeverity(r.Issues, sec.sev)
		if len(issues) == 0 {
			continue
		}
		b.line("### %s", sec.title)
		b.blank()
		for _, is := range issues {
			b.line("> **%s** %s", is.Code, is.Message)
			b.line(">")
		}
		b.blank()
	}
	return f.flush(&b)
}

func (f *Formatter) validationHuman(r ValidationResult) error {
	s := f.styles
	var b builder

	if r.State != nil {
		b.section(s, "Concept Coverage")
		for _, id := range r.State.ConceptIDs() {
			c := r.State.Concepts[id]
			domain := c.Domain
			if domain == "" {
				domain = "no domain"
			}
			b.blank()
			b.line("%s (%s)", s.Accent.Render(id), domain)
			if len(c.Models) > 0 {
				b.line("  models: %s", strings.Join(c.Models, ", "))
			} else {
				b.line("  models: %s", s.Muted.Render("-"))
			}
			b.line("  status: %s", f.statusBadge(c.Status()))
		}

		b.section(s, "Relationships")
		for _, key := range r.State.RelationshipKeys() {
			rel := r.State.Relationships[key]
			b.blank()
			b.line("%s", key)
			if rel.Status(r.State.Concepts) == state.StatusComplete {
				b.line("  %s %s", s.Success.Render("✓"), rel.Cardinality)
			} else {
				b.line("  %s", s.Warning.Render("○ stub"))
			}
		}
	}

	if len(r.Sync.Messages) > 0 {
		b.section(s, "Sync")
		f.syncMessages(&b, r.Sync)
	}

	if len(r.Issues) > 0 {
		b.section(s, "Validation Issues")
		for _, sec := range []struct {
			title string
			sev   validator.Severity
			style func(...string) string
		}{
			{"✗ ERRORS", validator.SeverityError, s.Error.Bold(true).Render},
			{"⚠ WARNINGS", validator.SeverityWarning, s.Warning.Bold(true).Render},
			{"ℹ INFO", validator.SeverityInfo, s.Info.Bold(true).Render},
		} {
			issues := issuesBySeverity(r.Issues, sec.sev)
			if len(issues) == 0 {
				continue
			}
			b.blank()
			b.line("%s", sec.style(sec.title))
			for _, is := range issues {
				b.line("  [%s] %s", is.Code, is.Message)
			}
		}
	}

	t := r.Summary
	b.blank()
	b.line("%s %d errors, %d warnings, %d info", s.Header.Render("Summary:"), t.Errors, t.Warnings, t.Infos)
	b.blank()
	if r.Passed() {
		b.line("%s", s.Success.Render("PASSED"))
	} else {
		b.line("%s", s.Error.Render("FAILED"))
	}
	return f.flush(&b)
}

func (f *Formatter) statusBadge(status state.Status) string {
	s := f.styles
	switch status {
	case state.StatusComplete:
		return s.Success.Render("● complete")
	case state.StatusStub:
		return s.Warning.Render("◐ stub")
	default:
		return s.Info.Render("◐ " + string(status))
	}
}

func (f *Formatter) syncMessages(b *builder, report reconcile.SyncReport) {
	s := f.styles
	for _, sec := range []struct {
		icon  string
		sev   reconcile.Severity
		style func(...string) string
	}{
		{"✗", reconcile.SeverityError, s.Error.Render},
		{"⚠", reconcile.SeverityWarning, s.Warning.Render},
		{"ℹ", reconcile.SeverityInfo, s.Info.Render},
	} {
		for _, m := range syncBySeverity(report.Messages, sec.sev) {
			b.line("  %s %s", sec.style(sec.icon), m.Text)
		}
	}
}

// SyncReport writes the messages of a sync pass and its counts.
func (f *Formatter) SyncReport(report reconcile.SyncReport) error {
	var b builder
	f.syncMessages(&b, report)
	b.blank()
	b.line("%d errors, %d warnings, %d info", report.ErrorCount, report.WarningCount, report.InfoCount)
	return f.flush(&b)
}
