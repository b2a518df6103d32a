package gitlab

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHoldsEveryQuery(t *testing.T) {
	for _, name := range []QueryName{
		QueryProjectMemberships,
		QuerySearchProjects,
		QueryProjectIssues,
	} {
		q, err := lookup(name)
		require.NoError(t, err, name)
		assert.Contains(t, q.document, "query "+string(name))
	}

	_, err := lookup("DeleteEverything")
	assert.Error(t, err)
}

func TestProjectQueriesIncludeFragment(t *testing.T) {
	for _, name := range []QueryName{QueryProjectMemberships, QuerySearchProjects} {
		q, _ := lookup(name)
		assert.Contains(t, q.document, "...ProjectFragment")
		assert.Contains(t, q.document, "fragment ProjectFragment on Project")
	}
}

func TestValidateQueryRejectsMismatchedName(t *testing.T) {
	err := validateQuery(query{
		name:         QuerySearchProjects,
		document:     projectIssuesDocument,
		responseType: reflect.TypeOf(searchProjectsResponse{}),
	})
	assert.Error(t, err)
}

func TestValidateQueryRejectsMissingSelection(t *testing.T) {
	type withAuthor struct {
		Project struct {
			Author string `json:"author"`
		} `json:"project"`
	}
	err := validateQuery(query{
		name:         QueryProjectIssues,
		document:     projectIssuesDocument,
		responseType: reflect.TypeOf(withAuthor{}),
	})
	assert.ErrorContains(t, err, `"author"`)
}

func TestValidateQueryRejectsMalformedDocument(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{
			name: "unbalanced braces",
			document: `
  query ProjectIssues($path: ID!, $cursor: String) {
    project(fullPath: $path) {
      issues(first: 20, after: $cursor) {
        edges { cursor node { id iid title descriptionHtml webUrl } }
        pageInfo { endCursor }
      }
    }
`,
		},
		{
			name: "fields only named as variables and comments",
			document: `
  # edges { node { iid webUrl } }
  query ProjectIssues($path: ID!, $cursor: String, $endCursor: String) {
    project(fullPath: $path) {
      issues(first: 20, after: $cursor) {
        pageInfo { hasNextPage }
      }
    }
  }
`,
		},
		{
			name: "field missing from schema",
			document: `
  query ProjectIssues($path: ID!, $cursor: String) {
    project(fullPath: $path) {
      issues(first: 20, after: $cursor) {
        edges { cursor node { id iid title descriptionHtml webUrl author } }
        pageInfo { endCursor }
      }
    }
  }
`,
		},
		{
			name: "variable of the wrong type",
			document: `
  query ProjectIssues($path: Int!, $cursor: String) {
    project(fullPath: $path) {
      issues(first: 20, after: $cursor) {
        edges { cursor node { id iid title descriptionHtml webUrl } }
        pageInfo { endCursor }
      }
    }
  }
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuery(query{
				name:         QueryProjectIssues,
				document:     tt.document,
				responseType: reflect.TypeOf(projectIssuesResponse{}),
			})
			assert.Error(t, err)
		})
	}
}

func TestValidateQueryExpandsFragments(t *testing.T) {
	const withoutFragmentFields = `
  query SearchProjects($term: String!, $limit: Int!) {
    projects(membership: true, search: $term, first: $limit) {
      nodes {
        ...ProjectFragment
      }
    }
  }

  fragment ProjectFragment on Project {
    id
    name
  }
`
	err := validateQuery(query{
		name:         QuerySearchProjects,
		document:     withoutFragmentFields,
		responseType: reflect.TypeOf(searchProjectsResponse{}),
	})
	assert.ErrorContains(t, err, `"fullPath"`)

	q, err := lookup(QuerySearchProjects)
	require.NoError(t, err)
	assert.NoError(t, validateQuery(q))
}

func TestValidateQueryRejectsMutation(t *testing.T) {
	err := validateQuery(query{
		name:         QueryProjectIssues,
		document:     `mutation ProjectIssues { project(fullPath: "a") { id } }`,
		responseType: reflect.TypeOf(projectIssuesResponse{}),
	})
	assert.Error(t, err)
}
