package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the store at dbPath. Failures wrap ErrUnavailable
// so callers can distinguish "store down" from per-file indexing errors.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// WAL keeps the read path usable while an indexing pass writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", ErrUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", ErrUnavailable, err)
	}

	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceFile atomically upserts the file record and replaces its entries.
// The transaction guarantees a reader never sees a file whose recorded hash
// disagrees with its stored chunks.
func (s *SQLiteStore) ReplaceFile(ctx context.Context, file *FileRecord, entries []*Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files (path, content_hash, language, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			language = excluded.language,
			indexed_at = excluded.indexed_at`,
		file.Path, file.ContentHash[:], file.Language, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert file %s: %w", file.Path, err)
	}

	// Drop entries for chunks that no longer exist in the file.
	if err := deleteStaleEntries(ctx, tx, file.Path, entries); err != nil {
		return err
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (chunk_id, file_path, symbol_name, content, description,
				content_hash, vector, dimension, provider, model, start_line, end_line, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				file_path = excluded.file_path,
				symbol_name = excluded.symbol_name,
				content = excluded.content,
				description = excluded.description,
				content_hash = excluded.content_hash,
				vector = excluded.vector,
				dimension = excluded.dimension,
				provider = excluded.provider,
				model = excluded.model,
				start_line = excluded.start_line,
				end_line = excluded.end_line,
				updated_at = excluded.updated_at`,
			e.ChunkID, e.FilePath, e.SymbolName, e.Content, e.Description,
			e.ContentHash[:], serializeVector(e.Vector), e.Dimension,
			e.Provider, e.Model, e.StartLine, e.EndLine, time.Now().UTC()); err != nil {
			return fmt.Errorf("upsert entry %s: %w", e.ChunkID, err)
		}
	}

	return tx.Commit()
}

func deleteStaleEntries(ctx context.Context, tx *sql.Tx, path string, entries []*Entry) error {
	if len(entries) == 0 {
		_, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE file_path = ?", path)
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(entries)), ",")
	args := make([]interface{}, 0, len(entries)+1)
	args = append(args, path)
	for _, e := range entries {
		args = append(args, e.ChunkID)
	}

	_, err := tx.ExecContext(ctx,
		"DELETE FROM entries WHERE file_path = ? AND chunk_id NOT IN ("+placeholders+")", args...)
	return err
}

// DeleteFile removes the file record and all its entries. Idempotent.
func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE file_path = ?", path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteAll drops every record.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files"); err != nil {
		return err
	}

	return tx.Commit()
}

// Search returns the top-k entries by cosine similarity against vector.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	if VectorExtensionAvailable {
		return s.searchOptimized(ctx, vector, k)
	}
	return s.searchFallback(ctx, vector, k)
}

// EntriesByFile lists the live entries for one file, ordered by start line.
func (s *SQLiteStore) EntriesByFile(ctx context.Context, path string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, entrySelect+" WHERE file_path = ? ORDER BY start_line", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FileHashes returns the path-to-hash map of all file records.
func (s *SQLiteStore) FileHashes(ctx context.Context) (map[string][32]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, content_hash FROM files")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string][32]byte)
	for rows.Next() {
		var path string
		var blob []byte
		if err := rows.Scan(&path, &blob); err != nil {
			return nil, err
		}
		var hash [32]byte
		copy(hash[:], blob)
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// ListFiles returns the sorted paths of all file records.
func (s *SQLiteStore) ListFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM files")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// Count returns the number of live entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

const entrySelect = `
	SELECT chunk_id, file_path, symbol_name, content, description,
		content_hash, vector, dimension, provider, model, start_line, end_line
	FROM entries`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var hashBlob, vectorBlob []byte
	if err := row.Scan(&e.ChunkID, &e.FilePath, &e.SymbolName, &e.Content, &e.Description,
		&hashBlob, &vectorBlob, &e.Dimension, &e.Provider, &e.Model,
		&e.StartLine, &e.EndLine); err != nil {
		return nil, err
	}
	copy(e.ContentHash[:], hashBlob)
	vec, err := deserializeVector(vectorBlob)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.ChunkID, err)
	}
	if len(vec) != e.Dimension {
		return nil, fmt.Errorf("%w: entry %s decodes to %d values, recorded dimension %d",
			ErrDimensionMismatch, e.ChunkID, len(vec), e.Dimension)
	}
	e.Vector = vec
	return &e, nil
}
