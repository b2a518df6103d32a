// Package progress renders a running import session.
package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/gitlab-import/internal/keys"
	gosync "github.com/nhle/gitlab-import/internal/sync"
	"github.com/nhle/gitlab-import/internal/theme"
)

// UpdateMsg carries progress from the runner goroutine.
type UpdateMsg gosync.Progress

// DoneMsg is sent once the runner returns.
type DoneMsg struct {
	Result *gosync.Result
	Err    error
}

// Model shows a spinner with the number of imported issues until the
// session finishes.
type Model struct {
	project  string
	keys     *keys.KeyMap
	spinner  spinner.Model
	progress gosync.Progress
	cancel   context.CancelFunc

	done     bool
	stopping bool
	result   *gosync.Result
	err      error
}

// New creates a progress view for project. cancel stops the session when the
// user quits early.
func New(project string, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.IdentifierStyle

	return Model{
		project: project,
		keys:    keys.DefaultKeyMap(),
		spinner: sp,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles runner messages and the quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UpdateMsg:
		m.progress = gosync.Progress(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Stop) {
			// Wait for the runner to observe the cancellation and send
			// DoneMsg, so saved records are reported accurately.
			if !m.stopping && m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render("Importing " + m.project))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s page %d, %d issues imported\n",
		m.spinner.View(), m.progress.Page, m.progress.Imported)

	if last := m.progress.Last; last.Identifier != "" {
		fmt.Fprintf(&b, "  %s %s\n", theme.IdentifierStyle.Render("#"+last.Identifier), last.Name)
	}

	b.WriteString("\n")
	if m.stopping {
		b.WriteString(theme.HelpStyle.Render("stopping..."))
	} else {
		b.WriteString(theme.HelpStyle.Render(keys.HelpText(m.keys.Stop)))
	}
	b.WriteString("\n")

	return b.String()
}

// Result returns the session outcome once DoneMsg has been received.
func (m Model) Result() (*gosync.Result, error) {
	return m.result, m.err
}

// Summary renders the final outcome for printing after the program exits.
// stored is the number of records in the local store after the session.
func Summary(project string, res *gosync.Result, stored int, err error) string {
	imported, pages := 0, 0
	if res != nil {
		imported, pages = res.Imported, res.Pages
	}

	var status string
	if err != nil {
		status = theme.ErrorStyle.Render("Import stopped: ") + err.Error()
	} else {
		status = theme.SuccessStyle.Render("Import complete")
	}

	body := fmt.Sprintf("%s\n%s: %d issues from %d pages\n%s",
		status, project, imported, pages,
		theme.HelpStyle.Render(fmt.Sprintf("%d records stored", stored)))
	return theme.SummaryStyle.Render(body)
}
