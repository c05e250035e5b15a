package store

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEntry(chunkID, path, content string, vector []float32) *Entry {
	return &Entry{
		ChunkID:     chunkID,
		FilePath:    path,
		Content:     content,
		ContentHash: sha256.Sum256([]byte(content)),
		Vector:      vector,
		Dimension:   len(vector),
		Provider:    "local",
		Model:       "test",
		StartLine:   1,
		EndLine:     2,
	}
}

func testFile(path, content string) *FileRecord {
	return &FileRecord{
		Path:        path,
		ContentHash: sha256.Sum256([]byte(content)),
		Language:    "go",
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "nested", "index.db"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReplaceFile_InsertAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.ReplaceFile(ctx, testFile("a.go", "v1"), []*Entry{
		testEntry("a.go#Alpha", "a.go", "func Alpha()", []float32{1, 0, 0}),
		testEntry("a.go#Beta", "a.go", "func Beta()", []float32{0, 1, 0}),
	})
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, err := s.EntriesByFile(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.go#Alpha", entries[0].ChunkID)
	assert.Equal(t, []float32{1, 0, 0}, entries[0].Vector)
}

func TestReplaceFile_StaleEntriesReplacedNotDuplicated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "v1"), []*Entry{
		testEntry("a.go#Alpha", "a.go", "func Alpha() v1", []float32{1, 0, 0}),
		testEntry("a.go#Gone", "a.go", "func Gone()", []float32{0, 0, 1}),
	}))

	// Re-index: Alpha changed, Gone was removed from the file.
	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "v2"), []*Entry{
		testEntry("a.go#Alpha", "a.go", "func Alpha() v2", []float32{0.5, 0.5, 0}),
	}))

	entries, err := s.EntriesByFile(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, entries, 1, "one live entry per chunk id")
	assert.Equal(t, "a.go#Alpha", entries[0].ChunkID)
	assert.Contains(t, entries[0].Content, "v2")
}

func TestDeleteFile_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "v1"), []*Entry{
		testEntry("a.go", "a.go", "package a", []float32{1, 0}),
	}))

	require.NoError(t, s.DeleteFile(ctx, "a.go"))
	require.NoError(t, s.DeleteFile(ctx, "a.go"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	files, err := s.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "a"), []*Entry{
		testEntry("a.go", "a.go", "alpha", []float32{1, 0, 0}),
	}))
	require.NoError(t, s.ReplaceFile(ctx, testFile("b.go", "b"), []*Entry{
		testEntry("b.go", "b.go", "beta", []float32{0, 1, 0}),
	}))
	require.NoError(t, s.ReplaceFile(ctx, testFile("c.go", "c"), []*Entry{
		testEntry("c.go", "c.go", "close to alpha", []float32{0.9, 0.1, 0}),
	}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.go", hits[0].Entry.ChunkID)
	assert.Equal(t, "c.go", hits[1].Entry.ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearch_Deterministic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"x.go", "y.go", "z.go"} {
		require.NoError(t, s.ReplaceFile(ctx, testFile(id, id), []*Entry{
			testEntry(id, id, id, []float32{1, 0}),
		}))
	}

	first, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	second, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Entry.ChunkID, second[i].Entry.ChunkID)
	}
}

func TestSearch_SkipsDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "a"), []*Entry{
		testEntry("a.go", "a.go", "alpha", []float32{1, 0, 0}),
	}))

	hits, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEntriesByFile_CorruptDimensionSurfaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "a"), []*Entry{
		testEntry("a.go", "a.go", "alpha", []float32{1, 0, 0}),
	}))

	_, err := s.db.ExecContext(ctx, `UPDATE entries SET dimension = dimension + 1`)
	require.NoError(t, err)

	_, err = s.EntriesByFile(ctx, "a.go")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFileHashes_RebuildsCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "content-a"), []*Entry{
		testEntry("a.go", "a.go", "content-a", []float32{1}),
	}))

	hashes, err := s.FileHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256([]byte("content-a")), hashes["a.go"])
}

func TestDeleteAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, testFile("a.go", "a"), []*Entry{
		testEntry("a.go", "a.go", "alpha", []float32{1}),
	}))
	require.NoError(t, s.DeleteAll(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
