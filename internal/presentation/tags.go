package presentation

import (
	"strings"

	"github.com/zjrosen/conceptual/internal/stubs"
	"github.com/zjrosen/conceptual/internal/tagging"
)

// TagPlan writes the planned tag changes, one block per model.
func (f *Formatter) TagPlan(changes []tagging.Change) error {
	s := f.styles
	var b builder

	if len(changes) == 0 {
		b.line("%s", s.Success.Render("✓ All model tags match their concepts."))
		return f.flush(&b)
	}

	b.line("%s", s.Header.Render("Tag Changes ("+plural(len(changes), "model")+")"))
	b.line("%s", rule)
	for _, c := range changes {
		b.blank()
		b.line("%s %s", s.Accent.Render(c.Model), s.Muted.Render(c.Path))
		for _, d := range c.AddDomains {
			b.line("  %s domain:%s", s.Success.Render("+"), d)
		}
		for _, d := range c.RemoveDomains {
			b.line("  %s domain:%s", s.Error.Render("-"), d)
		}
		if c.RemoveOwner != "" {
			b.line("  %s owner:%s", s.Error.Render("-"), c.RemoveOwner)
		}
		if c.AddOwner != "" {
			b.line("  %s owner:%s", s.Success.Render("+"), c.AddOwner)
		}
	}
	return f.flush(&b)
}

// TagResult writes the outcome of applying tag changes.
func (f *Formatter) TagResult(res tagging.Result, dryRun bool) error {
	s := f.styles
	var b builder

	verb := "Updated"
	if dryRun {
		verb = "Would update"
	}
	if len(res.ModifiedFiles) > 0 {
		b.line("%s", s.Success.Render("✓ "+verb+" "+plural(len(res.ModifiedFiles), "file")+":"))
		for _, p := range res.ModifiedFiles {
			b.line("  - %s", p)
		}
	}
	if len(res.Errors) > 0 {
		b.line("%s", s.Error.Render("✗ "+plural(len(res.Errors), "file")+" failed:"))
		for _, err := range res.Errors {
			b.line("  - %s", err)
		}
	}
	if len(res.ModifiedFiles) == 0 && len(res.Errors) == 0 {
		b.line("%s", s.Muted.Render("Nothing to apply."))
	}
	return f.flush(&b)
}

// StubResult writes the stubs created by sync --create-stubs.
func (f *Formatter) StubResult(res stubs.Result, file string) error {
	s := f.styles
	var b builder

	for _, st := range res.Skipped {
		b.line("%s", s.Warning.Render("Skipping "+st.Model+": concept '"+st.ConceptID+"' already exists"))
	}
	if len(res.Created) == 0 {
		b.line("%s", s.Warning.Render("No stubs created (concepts already exist)"))
		return f.flush(&b)
	}

	b.blank()
	b.line("%s", s.Success.Render("✓ Created "+plural(len(res.Created), "stub concept")+":"))
	for _, st := range res.Created {
		b.line("  - %s (from %s)", st.ConceptID, st.Model)
	}
	b.blank()
	b.line("%s Updated %s", s.Success.Bold(true).Render("Sync complete!"), file)
	b.blank()
	b.line("%s", strings.Join([]string{
		"Next steps:",
		"  1. Add meta.concept tags to your models",
		"  2. Enrich stub concepts with domain, owner, definition",
	}, "\n"))
	return f.flush(&b)
}
