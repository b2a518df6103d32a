package model

import (
	"context"
	"errors"
	"time"
)

// FilterTypeAutocomplete is a filter whose values come from FilterValues.
const FilterTypeAutocomplete = "autocomplete"

// Filter describes one input the host renders before listing candidates.
type Filter struct {
	Title    string `json:"title"`
	Required bool   `json:"required"`
	Type     string `json:"type"`
}

// Filters maps a filter name to its schema.
type Filters map[string]Filter

// FilterValues holds the current value of each filter, keyed by filter name.
type FilterValues map[string]string

// FilterValue is a display/value pair offered for an autocomplete filter.
type FilterValue struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// ImportRecord is the generic shape of a candidate the host can import.
type ImportRecord struct {
	// Name is the human-readable title.
	Name string `json:"name"`

	// UniqueID is globally stable across re-imports of the same item.
	UniqueID string `json:"uniqueId"`

	// Identifier is the short reference shown next to the name.
	Identifier string `json:"identifier"`

	// URL links back to the item in its source system.
	URL string `json:"url"`

	// Description is the HTML body as returned by the source.
	Description string `json:"description"`
}

// CandidatePage is one page of candidates. An empty NextPage means there are
// no further pages.
type CandidatePage struct {
	Records  []ImportRecord `json:"records"`
	NextPage string         `json:"nextPage,omitempty"`
}

// RecordSaver persists a populated host record.
type RecordSaver interface {
	SaveRecord(ctx context.Context, rec *HostRecord) error
}

// RecordSaverFunc adapts a function to RecordSaver.
type RecordSaverFunc func(ctx context.Context, rec *HostRecord) error

// SaveRecord calls f(ctx, rec).
func (f RecordSaverFunc) SaveRecord(ctx context.Context, rec *HostRecord) error {
	return f(ctx, rec)
}

// ErrNoSaver is returned by HostRecord.Save when the record was built without
// a saver.
var ErrNoSaver = errors.New("host record has no saver")

// HostRecord is the host-side object an import populates. Fields other than
// Description are owned by the host; importers only write Description.
type HostRecord struct {
	ID          string    `db:"id" json:"id"`
	UniqueID    string    `db:"unique_id" json:"unique_id"`
	Identifier  string    `db:"identifier" json:"identifier"`
	Name        string    `db:"name" json:"name"`
	URL         string    `db:"url" json:"url"`
	Description string    `db:"description" json:"description"`
	ImportedAt  time.Time `db:"imported_at" json:"imported_at"`

	saver RecordSaver
}

// NewHostRecord returns an empty host record that persists through saver.
func NewHostRecord(saver RecordSaver) *HostRecord {
	return &HostRecord{saver: saver}
}

// Save persists the record through its saver.
func (r *HostRecord) Save(ctx context.Context) error {
	if r.saver == nil {
		return ErrNoSaver
	}
	return r.saver.SaveRecord(ctx, r)
}
