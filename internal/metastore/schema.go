package metastore

// DDL for the metastore database (metastore.db). Timestamps are stored as
// int64 nanoseconds since the Unix epoch.

// CreateQueueTableSQL creates the queue table.
// The payload column holds Snappy-compressed bytes.
const CreateQueueTableSQL = `
CREATE TABLE IF NOT EXISTS queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL UNIQUE,
    value BLOB NOT NULL,
    created INTEGER NOT NULL
)`

// CreateQueueIndexesSQL creates secondary indexes on the queue table.
var CreateQueueIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_queue_created ON queue(created)`,
}

// CreateSchemasTableSQL creates the schemas table.
const CreateSchemasTableSQL = `
CREATE TABLE IF NOT EXISTS schemas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created INTEGER NOT NULL
)`

// AllSchemaSQL returns all SQL statements needed to initialize the metastore.
func AllSchemaSQL() []string {
	statements := []string{
		CreateQueueTableSQL,
		CreateSchemasTableSQL,
	}
	statements = append(statements, CreateQueueIndexesSQL...)
	return statements
}
