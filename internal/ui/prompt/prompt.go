// Package prompt holds the interactive forms shown before an import starts.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"

	"github.com/nhle/gitlab-import/internal/importer"
	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/source"
)

// ErrNoProject is returned when the picker closes without a selection.
var ErrNoProject = errors.New("no project selected")

// Token asks for a GitLab personal access token. It satisfies
// gitlab.Prompter through gitlab.PrompterFunc.
func Token(ctx context.Context) (string, error) {
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitLab personal access token").
				Description("Needs the read_api scope").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(validateRequired("Token")),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	return strings.TrimSpace(token), nil
}

// Project lets the user search their GitLab projects through the importer's
// filter values and returns the selected project's full path.
func Project(ctx context.Context, imp source.Importer) (string, error) {
	var term, project string
	lookup := &projectLookup{ctx: ctx, imp: imp}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Search projects").
				Description("Leave empty to list your memberships").
				Value(&term),
			huh.NewSelect[string]().
				Title("Project").
				Height(12).
				OptionsFunc(func() []huh.Option[string] {
					return lookup.options(term)
				}, &term).
				Value(&project),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("picking project: %w", err)
	}
	if err := lookup.err(); err != nil {
		return "", err
	}
	if project == "" {
		return "", ErrNoProject
	}

	return project, nil
}

// projectLookup fetches project options for the picker. huh calls options
// from its own goroutine, so the last error is guarded.
type projectLookup struct {
	ctx context.Context
	imp source.Importer

	mu      sync.Mutex
	lastErr error
}

func (l *projectLookup) options(term string) []huh.Option[string] {
	values, err := l.imp.FilterValues(l.ctx, importer.FilterProject, model.FilterValues{
		importer.FilterProject: term,
	})

	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()

	if err != nil {
		return nil
	}
	return Options(values)
}

func (l *projectLookup) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Options converts filter values into select options, labelled with both
// the project name and its path.
func Options(values []model.FilterValue) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		label := v.Text
		if v.Value != "" && v.Value != v.Text {
			label = fmt.Sprintf("%s (%s)", v.Text, v.Value)
		}
		opts = append(opts, huh.NewOption(label, v.Value))
	}
	return opts
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
