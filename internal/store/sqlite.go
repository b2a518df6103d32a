package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/gitlab-import/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB

	// now is swapped in tests.
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveRecord implements model.RecordSaver.
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *model.HostRecord) error {
	return s.UpsertRecord(ctx, rec)
}

// UpsertRecord inserts rec, or updates the row with the same unique_id while
// keeping its internal ID. rec.ID and rec.ImportedAt are filled in.
func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec *model.HostRecord) error {
	if rec.UniqueID == "" {
		return errors.New("upserting record: empty unique id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.GetContext(ctx, &id, "SELECT id FROM records WHERE unique_id = ?", rec.UniqueID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
	case err != nil:
		return fmt.Errorf("looking up record %s: %w", rec.UniqueID, err)
	}

	rec.ID = id
	rec.ImportedAt = s.now().UTC()

	const query = `
		INSERT INTO records (
			id, unique_id, identifier, name, url, description, imported_at
		) VALUES (
			:id, :unique_id, :identifier, :name, :url, :description, :imported_at
		)
		ON CONFLICT(unique_id) DO UPDATE SET
			identifier  = excluded.identifier,
			name        = excluded.name,
			url         = excluded.url,
			description = excluded.description,
			imported_at = excluded.imported_at`

	if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("upserting record %s: %w", rec.UniqueID, err)
	}

	return tx.Commit()
}

// GetRecordByUniqueID retrieves a single record by its source unique ID.
func (s *SQLiteStore) GetRecordByUniqueID(
	ctx context.Context,
	uniqueID string,
) (*model.HostRecord, error) {
	var rec model.HostRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM records WHERE unique_id = ?", uniqueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting record %s: %w", uniqueID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", uniqueID, err)
	}

	return &rec, nil
}

// ListRecords retrieves records matching the filter.
func (s *SQLiteStore) ListRecords(
	ctx context.Context,
	filter RecordFilter,
) ([]model.HostRecord, error) {
	query := "SELECT * FROM records"
	var args []interface{}

	if filter.Query != nil && *filter.Query != "" {
		query += " WHERE (name LIKE ? OR description LIKE ?)"
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	sortBy := "imported_at"
	allowedSorts := map[string]bool{
		"imported_at": true,
		"name":        true,
		"identifier":  true,
	}
	if allowedSorts[filter.SortBy] {
		sortBy = filter.SortBy
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	// rowid keeps insertion order stable between equal sort keys.
	query += fmt.Sprintf(" ORDER BY %s %s, rowid ASC", sortBy, direction)

	switch {
	case filter.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	case filter.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var records []model.HostRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return records, nil
}

// CountRecords returns the number of stored records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM records"); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
