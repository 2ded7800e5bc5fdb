package journal

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the journal schema.
//
// Timestamps are stored as Unix seconds so cutoff comparisons stay plain
// integer comparisons.
const Schema = `
-- One row per calibration attempt, success or failure
CREATE TABLE IF NOT EXISTS calibrations (
    id TEXT PRIMARY KEY,
    benchmark TEXT NOT NULL,
    throughput REAL NOT NULL,
    duration_ms INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

-- Process lifecycle events: started, ready, terminal
CREATE TABLE IF NOT EXISTS lifecycle (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for retention pruning and history lookups
CREATE INDEX IF NOT EXISTS idx_calibrations_created_at ON calibrations(created_at);
CREATE INDEX IF NOT EXISTS idx_lifecycle_created_at ON lifecycle(created_at);
CREATE INDEX IF NOT EXISTS idx_lifecycle_kind ON lifecycle(kind);
`

// insertSchemaVersion records the schema version on first open.
const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`
