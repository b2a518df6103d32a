// Package importer implements the host importer lifecycle for GitLab issues.
package importer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/source"
	"github.com/nhle/gitlab-import/internal/source/gitlab"
)

// ID is the identifier the host registers this importer under.
const ID = "aha-develop.gitlab-import.gitlab"

// FilterProject is the only filter the importer understands.
const FilterProject = "project"

// Client is the part of the GitLab adapter the connector uses.
type Client interface {
	Authenticate(ctx context.Context) (*gitlab.Credential, error)
	AutocompleteProject(ctx context.Context, query string) ([]model.FilterValue, error)
	FindIssues(ctx context.Context, fullPath string, cursor string) (*gitlab.IssuePage, error)
}

// Connector adapts GitLab issues to the host importer contract. It holds no
// state between calls.
type Connector struct {
	client Client
	log    logrus.FieldLogger
}

var _ source.Importer = (*Connector)(nil)

// New creates a Connector backed by client.
func New(client Client, log logrus.FieldLogger) *Connector {
	return &Connector{
		client: client,
		log:    log.WithField("importer", ID),
	}
}

// ListFilters starts authentication in the background and returns the
// filter schema: a single required project autocomplete.
func (c *Connector) ListFilters(ctx context.Context) (model.Filters, error) {
	log := c.hookLog(source.ActionListFilters)

	// Authentication runs detached from ctx so it can finish (and prompt)
	// after the hook returns.
	go func() {
		if _, err := c.client.Authenticate(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("background authentication failed")
		}
	}()

	return model.Filters{
		FilterProject: {
			Title:    "Project",
			Required: true,
			Type:     model.FilterTypeAutocomplete,
		},
	}, nil
}

// FilterValues returns candidate values for filterName. Only the project
// filter is recognized; its current text is the search query. Unknown
// filters yield an empty list.
func (c *Connector) FilterValues(
	ctx context.Context,
	filterName string,
	filters model.FilterValues,
) ([]model.FilterValue, error) {
	log := c.hookLog(source.ActionFilterValues).WithField("filter", filterName)

	switch filterName {
	case FilterProject:
		values, err := c.client.AutocompleteProject(ctx, filters[FilterProject])
		if err != nil {
			return nil, err
		}
		log.WithField("count", len(values)).Debug("listed filter values")
		return values, nil
	}

	log.Debug("unknown filter")
	return []model.FilterValue{}, nil
}

// ListCandidates returns one page of issues of the selected project. With no
// project selected it returns an empty page and echoes nextPage.
func (c *Connector) ListCandidates(
	ctx context.Context,
	filters model.FilterValues,
	nextPage string,
) (*model.CandidatePage, error) {
	project := filters[FilterProject]
	if project == "" {
		return &model.CandidatePage{
			Records:  []model.ImportRecord{},
			NextPage: nextPage,
		}, nil
	}

	page, err := c.client.FindIssues(ctx, project, nextPage)
	if err != nil {
		return nil, err
	}

	records := make([]model.ImportRecord, 0, len(page.Records))
	for _, issue := range page.Records {
		records = append(records, issueToRecord(issue))
	}

	c.hookLog(source.ActionListCandidates).WithFields(logrus.Fields{
		"project": project,
		"count":   len(records),
		"more":    page.EndCursor != "",
	}).Debug("listed candidates")

	return &model.CandidatePage{
		Records:  records,
		NextPage: page.EndCursor,
	}, nil
}

// ImportRecord writes the issue description plus a backlink into host and
// saves it once. A save failure is returned as a *source.SaveError wrapping
// the host's own error.
func (c *Connector) ImportRecord(
	ctx context.Context,
	record model.ImportRecord,
	host *model.HostRecord,
) error {
	host.Description = Description(record)

	if err := host.Save(ctx); err != nil {
		return &source.SaveError{UniqueID: record.UniqueID, Err: err}
	}

	c.hookLog(source.ActionImportRecord).
		WithField("unique_id", record.UniqueID).
		Debug("imported record")
	return nil
}

func (c *Connector) hookLog(action source.Action) logrus.FieldLogger {
	return c.log.WithField("action", action)
}

// Description is the imported description: the GitLab HTML followed by a
// paragraph linking back to the issue.
func Description(record model.ImportRecord) string {
	return record.Description + "<p><a href='" + record.URL + "'>View on GitLab</a></p>"
}

// issueToRecord converts a GitLab issue into the host's generic record.
func issueToRecord(issue gitlab.Issue) model.ImportRecord {
	return model.ImportRecord{
		Name:        issue.Title,
		UniqueID:    issue.ID,
		Identifier:  issue.IID,
		URL:         issue.WebURL,
		Description: issue.DescriptionHTML,
	}
}
