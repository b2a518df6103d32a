package gitlab

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// QueryName identifies a registered GraphQL operation.
type QueryName string

const (
	QueryProjectMemberships QueryName = "ProjectMemberships"
	QuerySearchProjects     QueryName = "SearchProjects"
	QueryProjectIssues      QueryName = "ProjectIssues"
)

// projectLimit caps the projects returned by autocomplete.
const projectLimit = 30

const projectFragment = `
  fragment ProjectFragment on Project {
    id
    name
    fullPath
  }
`

const projectMembershipsDocument = `
  query ProjectMemberships($limit: Int!) {
    currentUser {
      projectMemberships(first: $limit) {
        nodes {
          project {
            ...ProjectFragment
          }
        }
      }
    }
  }
` + projectFragment

const searchProjectsDocument = `
  query SearchProjects($term: String!, $limit: Int!) {
    projects(membership: true, search: $term, first: $limit) {
      nodes {
        ...ProjectFragment
      }
    }
  }
` + projectFragment

const projectIssuesDocument = `
  query ProjectIssues($path: ID!, $cursor: String) {
    project(fullPath: $path) {
      issues(first: 20, after: $cursor) {
        edges {
          cursor
          node {
            id
            iid
            title
            descriptionHtml
            webUrl
          }
        }
        pageInfo {
          endCursor
        }
      }
    }
  }
`

// query is one registry entry: the document sent to GitLab and the type its
// data decodes into.
type query struct {
	name         QueryName
	document     string
	responseType reflect.Type
}

var registry = map[QueryName]query{}

// schema is the subset of the GitLab GraphQL schema the registered
// documents are validated against.
var schema = mustSchema()

func init() {
	mustRegister(QueryProjectMemberships, projectMembershipsDocument, projectMembershipsResponse{})
	mustRegister(QuerySearchProjects, searchProjectsDocument, searchProjectsResponse{})
	mustRegister(QueryProjectIssues, projectIssuesDocument, projectIssuesResponse{})
}

func mustSchema() graphql.Schema {
	issueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Issue",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"iid":             &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"title":           &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"descriptionHtml": &graphql.Field{Type: graphql.String},
			"webUrl":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	issueEdgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "IssueEdge",
		Fields: graphql.Fields{
			"cursor": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"node":   &graphql.Field{Type: issueType},
		},
	})

	pageInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"endCursor":   &graphql.Field{Type: graphql.String},
		},
	})

	issueConnectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "IssueConnection",
		Fields: graphql.Fields{
			"edges":    &graphql.Field{Type: graphql.NewList(issueEdgeType)},
			"nodes":    &graphql.Field{Type: graphql.NewList(issueType)},
			"pageInfo": &graphql.Field{Type: graphql.NewNonNull(pageInfoType)},
		},
	})

	projectType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Project",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"fullPath": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"issues": &graphql.Field{
				Type: issueConnectionType,
				Args: graphql.FieldConfigArgument{
					"first": &graphql.ArgumentConfig{Type: graphql.Int},
					"after": &graphql.ArgumentConfig{Type: graphql.String},
				},
			},
		},
	})

	projectMemberType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ProjectMember",
		Fields: graphql.Fields{
			"project": &graphql.Field{Type: projectType},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CurrentUser",
		Fields: graphql.Fields{
			"projectMemberships": &graphql.Field{
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "ProjectMemberConnection",
					Fields: graphql.Fields{
						"nodes": &graphql.Field{Type: graphql.NewList(projectMemberType)},
					},
				}),
				Args: graphql.FieldConfigArgument{
					"first": &graphql.ArgumentConfig{Type: graphql.Int},
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"currentUser": &graphql.Field{Type: userType},
			"projects": &graphql.Field{
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "ProjectConnection",
					Fields: graphql.Fields{
						"nodes": &graphql.Field{Type: graphql.NewList(projectType)},
					},
				}),
				Args: graphql.FieldConfigArgument{
					"membership": &graphql.ArgumentConfig{Type: graphql.Boolean},
					"search":     &graphql.ArgumentConfig{Type: graphql.String},
					"first":      &graphql.ArgumentConfig{Type: graphql.Int},
				},
			},
			"project": &graphql.Field{
				Type: projectType,
				Args: graphql.FieldConfigArgument{
					"fullPath": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
			},
		},
	})

	s, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		panic(fmt.Sprintf("building gitlab schema: %v", err))
	}
	return s
}

func mustRegister(name QueryName, document string, response interface{}) {
	q := query{
		name:         name,
		document:     document,
		responseType: reflect.TypeOf(response),
	}
	if err := validateQuery(q); err != nil {
		panic(err)
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("query %s registered twice", name))
	}
	registry[name] = q
}

// validateQuery parses the document, checks that it declares the query it is
// registered under, validates it against the schema and requires every field
// its response type decodes to be selected.
func validateQuery(q query) error {
	doc, err := parser.Parse(parser.ParseParams{Source: q.document})
	if err != nil {
		return fmt.Errorf("query %s: parsing document: %w", q.name, err)
	}

	var op *ast.OperationDefinition
	fragments := map[string]*ast.FragmentDefinition{}
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.OperationDefinition:
			if op != nil {
				return fmt.Errorf("query %s: document declares more than one operation", q.name)
			}
			op = d
		case *ast.FragmentDefinition:
			fragments[d.Name.Value] = d
		}
	}
	if op == nil || op.Name == nil {
		return fmt.Errorf("query %s: document has no named operation", q.name)
	}
	if op.Operation != ast.OperationTypeQuery {
		return fmt.Errorf("query %s: document declares a %s", q.name, op.Operation)
	}
	if QueryName(op.Name.Value) != q.name {
		return fmt.Errorf("query %s: document declares operation %s", q.name, op.Name.Value)
	}

	if res := graphql.ValidateDocument(&schema, doc, nil); !res.IsValid {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("query %s: invalid document: %s", q.name, strings.Join(msgs, "; "))
	}

	return checkSelections(q.name, []*ast.SelectionSet{op.SelectionSet}, fragments, q.responseType)
}

// checkSelections requires every JSON field of t to be selected in sets,
// recursing into nested structs with the field's own selections.
func checkSelections(
	name QueryName,
	sets []*ast.SelectionSet,
	fragments map[string]*ast.FragmentDefinition,
	t reflect.Type,
) error {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	selected := map[string][]*ast.SelectionSet{}
	for _, set := range sets {
		collectFields(set, fragments, selected)
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		field := strings.Split(f.Tag.Get("json"), ",")[0]
		if field == "" || field == "-" {
			continue
		}
		sub, ok := selected[field]
		if !ok {
			return fmt.Errorf("query %s: response field %q is not selected", name, field)
		}
		if err := checkSelections(name, sub, fragments, f.Type); err != nil {
			return err
		}
	}
	return nil
}

// collectFields indexes the fields of set by response key, expanding
// fragment spreads and inline fragments.
func collectFields(
	set *ast.SelectionSet,
	fragments map[string]*ast.FragmentDefinition,
	into map[string][]*ast.SelectionSet,
) {
	if set == nil {
		return
	}
	for _, sel := range set.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			key := s.Name.Value
			if s.Alias != nil {
				key = s.Alias.Value
			}
			into[key] = append(into[key], s.SelectionSet)
		case *ast.FragmentSpread:
			if frag, ok := fragments[s.Name.Value]; ok {
				collectFields(frag.SelectionSet, fragments, into)
			}
		case *ast.InlineFragment:
			collectFields(s.SelectionSet, fragments, into)
		}
	}
}

func lookup(name QueryName) (query, error) {
	q, ok := registry[name]
	if !ok {
		return query{}, fmt.Errorf("unknown query %s", name)
	}
	return q, nil
}
