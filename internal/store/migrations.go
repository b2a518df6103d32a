package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	unique_id   TEXT NOT NULL UNIQUE,
	identifier  TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	imported_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_imported_at ON records(imported_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
