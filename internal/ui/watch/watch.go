// Package watch implements the terminal UI of the watch command: it re-runs
// build, sync and validation whenever project files change and shows the
// latest outcome.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/reconcile"
	"github.com/zjrosen/conceptual/internal/validator"
	"github.com/zjrosen/conceptual/internal/watcher"
)

// defaultMaxFindings is used before the first WindowSizeMsg.
const defaultMaxFindings = 20

// Runner performs one build, sync and validation pass.
type Runner func(ctx context.Context) (presentation.ValidationResult, error)

type changeMsg watcher.Event

type watcherClosedMsg struct{}

type resultMsg struct {
	result presentation.ValidationResult
	err    error
	took   time.Duration
}

// Model is the watch screen.
type Model struct {
	ctx        context.Context
	projectDir string
	run        Runner
	events     <-chan watcher.Event

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	running  bool
	pending  bool
	watching bool

	runs    int
	result  presentation.ValidationResult
	err     error
	took    time.Duration
	changed []string

	width  int
	height int
}

// New creates the watch model. events may be nil, in which case only the
// initial run and manual re-runs happen.
func New(ctx context.Context, projectDir string, run Runner, events <-chan watcher.Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	h := help.New()
	h.Styles.ShortKey = helpStyle
	h.Styles.ShortDesc = helpStyle
	return Model{
		ctx:        ctx,
		projectDir: projectDir,
		run:        run,
		events:     events,
		keys:       DefaultKeyMap(),
		help:       h,
		spinner:    s,
		running:    true,
		watching:   events != nil,
	}
}

// Init starts the first run and begins listening for changes. New marks
// the model as running for it.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCmd(), m.listen())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Rerun):
			return m.start()
		}
		return m, nil

	case changeMsg:
		m.changed = msg.Paths
		log.Debug(log.CatUI, "Files changed", "count", len(msg.Paths))
		next, cmd := m.start()
		return next, tea.Batch(cmd, m.listen())

	case watcherClosedMsg:
		m.watching = false
		return m, nil

	case resultMsg:
		m.running = false
		m.runs++
		m.result = msg.result
		m.err = msg.err
		m.took = msg.took
		if msg.err != nil {
			log.Err(log.CatUI, "Watch run failed", msg.err)
		}
		if m.pending {
			m.pending = false
			return m.start()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// start begins a run, or queues one when a run is in flight.
func (m Model) start() (Model, tea.Cmd) {
	if m.running {
		m.pending = true
		return m, nil
	}
	m.running = true
	return m, tea.Batch(m.spinner.Tick, m.runCmd())
}

func (m Model) runCmd() tea.Cmd {
	ctx, run := m.ctx, m.run
	return func() tea.Msg {
		began := time.Now()
		res, err := run(ctx)
		return resultMsg{result: res, err: err, took: time.Since(began)}
	}
}

func (m Model) listen() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ctx, events := m.ctx, m.events
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return watcherClosedMsg{}
			}
			return changeMsg(ev)
		}
	}
}

// Runs returns how many passes have completed.
func (m Model) Runs() int {
	return m.runs
}

// Err returns the error of the last pass, if any.
func (m Model) Err() error {
	return m.err
}

// Result returns the last completed pass.
func (m Model) Result() presentation.ValidationResult {
	return m.result
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("conceptual watch"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(m.projectDir))
	b.WriteString("\n\n")

	switch {
	case m.running && m.runs == 0:
		b.WriteString(m.spinner.View() + " Validating...\n")
		return b.String()
	case m.err != nil:
		b.WriteString(errorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
	default:
		m.writeResult(&b)
	}

	b.WriteString("\n")
	if m.running {
		b.WriteString(m.spinner.View() + " Re-validating...\n")
	} else {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("run #%d took %s", m.runs, m.took.Round(time.Millisecond))))
	}
	if len(m.changed) > 0 {
		names := make([]string, len(m.changed))
		for i, p := range m.changed {
			names[i] = m.relative(p)
		}
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("changed:"), strings.Join(names, ", "))
	}
	if !m.watching {
		b.WriteString(warningStyle.Render("not watching for changes"))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m Model) writeResult(b *strings.Builder) {
	r := m.result
	t := r.Summary
	if r.Passed() {
		b.WriteString(successStyle.Render("✓ PASSED"))
	} else {
		b.WriteString(errorStyle.Render("✗ FAILED"))
	}
	fmt.Fprintf(b, "  %d errors, %d warnings, %d info\n", t.Errors, t.Warnings, t.Infos)

	if st := r.State; st != nil {
		fmt.Fprintf(b, "%s %d  %s %d  %s %d  %s %d\n",
			mutedStyle.Render("concepts"), len(st.Concepts),
			mutedStyle.Render("relationships"), len(st.Relationships),
			mutedStyle.Render("models"), len(st.Models),
			mutedStyle.Render("orphans"), len(st.Orphans),
		)
	}

	lines := findingLines(r)
	if len(lines) == 0 {
		return
	}
	limit := m.maxFindings()
	b.WriteString("\n")
	for i, line := range lines {
		if i == limit {
			fmt.Fprintf(b, "%s\n", mutedStyle.Render(fmt.Sprintf("… %d more", len(lines)-limit)))
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func (m Model) maxFindings() int {
	if m.height == 0 {
		return defaultMaxFindings
	}
	return max(m.height-12, 3)
}

func (m Model) relative(path string) string {
	if rel, err := filepath.Rel(m.projectDir, path); err == nil {
		return rel
	}
	return path
}

// findingLines lists sync messages then rule issues, errors first.
func findingLines(r presentation.ValidationResult) []string {
	var lines []string
	for _, sev := range []struct {
		sync  reconcile.Severity
		rule  validator.Severity
		icon  string
		style lipgloss.Style
	}{
		{reconcile.SeverityError, validator.SeverityError, "✗", errorStyle},
		{reconcile.SeverityWarning, validator.SeverityWarning, "⚠", warningStyle},
		{reconcile.SeverityInfo, validator.SeverityInfo, "ℹ", infoStyle},
	} {
		for _, msg := range r.Sync.Messages {
			if msg.Severity == sev.sync {
				lines = append(lines, sev.style.Render(sev.icon)+" "+msg.Text)
			}
		}
		for _, is := range r.Issues {
			if is.Severity == sev.rule {
				lines = append(lines, sev.style.Render(sev.icon)+" ["+is.Code+"] "+is.Message)
			}
		}
	}
	return lines
}
