package gitlab

// Project is the subset of a GitLab project the importer needs.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"fullPath"`
}

// Issue is a snapshot of a GitLab issue at fetch time.
type Issue struct {
	// ID is the global ID, e.g. gid://gitlab/Issue/42.
	ID string `json:"id"`

	// IID is the project-scoped number shown as #12.
	IID string `json:"iid"`

	Title           string `json:"title"`
	DescriptionHTML string `json:"descriptionHtml"`
	WebURL          string `json:"webUrl"`
}

// IssueEdge pairs an issue with its pagination cursor.
type IssueEdge struct {
	Cursor string `json:"cursor"`
	Node   Issue  `json:"node"`
}

// PageInfo is the page-level pagination metadata.
type PageInfo struct {
	EndCursor *string `json:"endCursor"`
}

// IssuePage is one page of issues. EndCursor is empty on the last page.
type IssuePage struct {
	Records   []Issue
	EndCursor string
}

// projectMembershipsResponse is the data of ProjectMemberships.
type projectMembershipsResponse struct {
	CurrentUser *struct {
		ProjectMemberships struct {
			Nodes []struct {
				Project *Project `json:"project"`
			} `json:"nodes"`
		} `json:"projectMemberships"`
	} `json:"currentUser"`
}

// searchProjectsResponse is the data of SearchProjects.
type searchProjectsResponse struct {
	Projects struct {
		Nodes []Project `json:"nodes"`
	} `json:"projects"`
}

// projectIssuesResponse is the data of ProjectIssues.
type projectIssuesResponse struct {
	Project *struct {
		Issues struct {
			Edges    []IssueEdge `json:"edges"`
			PageInfo PageInfo    `json:"pageInfo"`
		} `json:"issues"`
	} `json:"project"`
}
