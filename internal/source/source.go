package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/gitlab-import/internal/model"
)

// SourceType identifies the external system an importer pulls from.
type SourceType string

const (
	SourceTypeGitLab SourceType = "gitlab"
)

// AuthError indicates that no valid token could be obtained for a source,
// or that the source rejected the one it was given.
type AuthError struct {
	SourceType SourceType
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.SourceType, e.Message, e.Err)
	}
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// TransportError is a network or HTTP level failure. StatusCode is zero when
// no response was received.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("transport error: status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport error: status %d", e.StatusCode)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// GraphQLError is returned when a query reached the server but was rejected,
// or when the response carried errors next to (possibly partial) data.
type GraphQLError struct {
	Query   string
	Message string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql error in %s: %s", e.Query, e.Message)
}

// IsGraphQLError reports whether err (or any error in its chain) is a
// GraphQLError.
func IsGraphQLError(err error) bool {
	var gErr *GraphQLError
	return errors.As(err, &gErr)
}

// SaveError wraps a failure of the host's own persistence during import.
type SaveError struct {
	UniqueID string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving record %s: %v", e.UniqueID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// IsSaveError reports whether err (or any error in its chain) is a SaveError.
func IsSaveError(err error) bool {
	var sErr *SaveError
	return errors.As(err, &sErr)
}

// Action names one lifecycle hook of the host importer contract.
type Action string

const (
	ActionListFilters    Action = "listFilters"
	ActionFilterValues   Action = "filterValues"
	ActionListCandidates Action = "listCandidates"
	ActionImportRecord   Action = "importRecord"
)

// Importer is the contract a host drives during an import session. The host
// calls one hook at a time and keeps all pagination state itself.
type Importer interface {
	// ListFilters returns the filter schema shown before candidates load.
	ListFilters(ctx context.Context) (model.Filters, error)

	// FilterValues returns candidate values for one filter given the
	// current values of all filters.
	FilterValues(
		ctx context.Context,
		filterName string,
		filters model.FilterValues,
	) ([]model.FilterValue, error)

	// ListCandidates returns one page of records. The host passes the
	// returned NextPage back until it comes back empty.
	ListCandidates(
		ctx context.Context,
		filters model.FilterValues,
		nextPage string,
	) (*model.CandidatePage, error)

	// ImportRecord populates the host record from a candidate and saves it.
	ImportRecord(
		ctx context.Context,
		record model.ImportRecord,
		host *model.HostRecord,
	) error
}
