package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion tracks the database layout via PRAGMA user_version.
const schemaVersion = 1

const schemaV1 = `
-- Indexed files: one row per workspace file with its last-indexed hash.
CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    content_hash BLOB NOT NULL,
    language TEXT,
    indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Chunk embeddings: at most one live entry per chunk id.
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chunk_id TEXT NOT NULL UNIQUE,
    file_path TEXT NOT NULL,
    symbol_name TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    content_hash BLOB NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    provider TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    start_line INTEGER NOT NULL DEFAULT 0,
    end_line INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (file_path) REFERENCES files(path) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_file ON entries(file_path);
`

// applySchema creates or upgrades the database layout.
func applySchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return tx.Commit()
}
