// Package store persists chunk embeddings with their metadata and serves
// nearest-neighbor queries. The backing index is a SQLite database; the
// driver is selected at build time (cgo or pure Go, see build_cgo.go and
// build_purego.go).
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable is returned when the store cannot be opened or created.
	// Indexing must not start until this is resolved.
	ErrUnavailable = errors.New("vector store unavailable")
	// ErrDimensionMismatch is returned when a persisted vector does not
	// decode to the dimension recorded alongside it.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// FileRecord tracks one indexed file: path is the unique key, the content
// hash is the digest of the file text at its last successful index.
type FileRecord struct {
	Path        string
	ContentHash [32]byte
	Language    string
	IndexedAt   time.Time
}

// Entry is one persisted chunk embedding. At most one live entry exists per
// chunk ID; stale entries are replaced on upsert, never duplicated.
type Entry struct {
	ChunkID     string
	FilePath    string
	SymbolName  string
	Content     string
	Description string
	ContentHash [32]byte
	Vector      []float32
	Dimension   int
	Provider    string
	Model       string
	StartLine   int
	EndLine     int
}

// Hit is one nearest-neighbor result with its cosine similarity score.
type Hit struct {
	Entry *Entry
	Score float64
}

// Store is the persistence interface consumed by the indexer (writes) and
// the query path (reads).
type Store interface {
	// ReplaceFile atomically upserts the file record and replaces the
	// file's entries with the given set. Entries for the file whose chunk
	// ID is absent from the new set are deleted in the same transaction.
	ReplaceFile(ctx context.Context, file *FileRecord, entries []*Entry) error

	// DeleteFile removes the file record and all its entries. Idempotent.
	DeleteFile(ctx context.Context, path string) error

	// DeleteAll clears every record, returning the store to its
	// pre-index state.
	DeleteAll(ctx context.Context) error

	// Search returns the top-k entries by cosine similarity.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// EntriesByFile lists the live entries for one file, symbol chunks
	// ordered by start line.
	EntriesByFile(ctx context.Context, path string) ([]*Entry, error)

	// FileHashes returns the path-to-hash map of all file records. Used
	// to rebuild the in-memory skip cache after a restart or cache clear.
	FileHashes(ctx context.Context) (map[string][32]byte, error)

	// ListFiles returns the sorted paths of all file records.
	ListFiles(ctx context.Context) ([]string, error)

	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)

	Close() error
}
