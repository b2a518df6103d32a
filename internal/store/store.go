package store

import (
	"context"

	"github.com/nhle/gitlab-import/internal/model"
)

// RecordFilter controls sorting and pagination for record queries.
type RecordFilter struct {
	Query    *string
	SortBy   string // "imported_at", "name", "identifier"
	SortDesc bool
	Limit    int
	Offset   int
}

// Store defines the persistence interface for imported host records.
type Store interface {
	model.RecordSaver

	// UpsertRecord inserts rec or updates the record with the same
	// UniqueID, keeping its internal ID.
	UpsertRecord(ctx context.Context, rec *model.HostRecord) error
	GetRecordByUniqueID(ctx context.Context, uniqueID string) (*model.HostRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.HostRecord, error)
	CountRecords(ctx context.Context) (int, error)
	Close() error
}
