package state

// ---------------------------------------------------------------------------
// Schema version
// ---------------------------------------------------------------------------

// SchemaVersion is the current database schema version.
const SchemaVersion = 2

// ---------------------------------------------------------------------------
// Migration support
// ---------------------------------------------------------------------------

// Migration describes a single schema migration. Migrations are ordered by
// Version and are idempotent.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the ordered list of all schema migrations. Any whose
// Version is already recorded in schema_migrations is skipped.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: global key/value state",
		SQL: `
CREATE TABLE IF NOT EXISTS kv (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  DATETIME NOT NULL
);`,
	},
	{
		Version:     2,
		Description: "Add notices log",
		SQL: `
CREATE TABLE IF NOT EXISTS notices (
    id          TEXT PRIMARY KEY,
    level       TEXT NOT NULL,
    message     TEXT NOT NULL,
    created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notices_created ON notices(created_at);`,
	},
}
