package gitlab

import (
	"context"
	"fmt"

	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/source"
)

// AutocompleteProject returns up to 30 projects the current user is a member
// of. An empty query lists memberships; anything else runs a membership
// scoped search. Results keep the server's order and are never cached.
func (c *Client) AutocompleteProject(
	ctx context.Context,
	query string,
) ([]model.FilterValue, error) {
	api, err := c.RequestFunc(ctx)
	if err != nil {
		return nil, err
	}

	var projects []Project

	if query == "" {
		var resp projectMembershipsResponse
		vars := map[string]interface{}{"limit": projectLimit}
		if err := api(ctx, QueryProjectMemberships, vars, &resp); err != nil {
			return nil, fmt.Errorf("listing project memberships: %w", err)
		}
		if resp.CurrentUser == nil {
			return nil, &source.GraphQLError{
				Query:   string(QueryProjectMemberships),
				Message: "no current user",
			}
		}
		for _, node := range resp.CurrentUser.ProjectMemberships.Nodes {
			// Memberships of projects the user can no longer see come
			// back with a null project.
			if node.Project != nil {
				projects = append(projects, *node.Project)
			}
		}
	} else {
		var resp searchProjectsResponse
		vars := map[string]interface{}{"term": query, "limit": projectLimit}
		if err := api(ctx, QuerySearchProjects, vars, &resp); err != nil {
			return nil, fmt.Errorf("searching projects for %q: %w", query, err)
		}
		projects = resp.Projects.Nodes
	}

	values := make([]model.FilterValue, 0, len(projects))
	for _, p := range projects {
		values = append(values, model.FilterValue{
			Text:  p.Name,
			Value: p.FullPath,
		})
	}

	return values, nil
}

// FindIssues fetches one page of up to 20 issues of the project at fullPath,
// starting after cursor. An empty cursor fetches the first page. Callers feed
// EndCursor back in until it comes back empty.
func (c *Client) FindIssues(
	ctx context.Context,
	fullPath string,
	cursor string,
) (*IssuePage, error) {
	api, err := c.RequestFunc(ctx)
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{"path": fullPath}
	if cursor != "" {
		vars["cursor"] = cursor
	}

	var resp projectIssuesResponse
	if err := api(ctx, QueryProjectIssues, vars, &resp); err != nil {
		return nil, fmt.Errorf("fetching issues of %s: %w", fullPath, err)
	}
	if resp.Project == nil {
		return nil, &source.GraphQLError{
			Query:   string(QueryProjectIssues),
			Message: fmt.Sprintf("project %s not found", fullPath),
		}
	}

	issues := resp.Project.Issues
	records := make([]Issue, 0, len(issues.Edges))
	for _, edge := range issues.Edges {
		records = append(records, edge.Node)
	}

	page := &IssuePage{Records: records}
	if issues.PageInfo.EndCursor != nil {
		page.EndCursor = *issues.PageInfo.EndCursor
	}

	c.log.WithField("project", fullPath).
		WithField("count", len(records)).
		Debug("fetched issue page")

	return page, nil
}
