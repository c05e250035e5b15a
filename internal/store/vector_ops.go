package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// searchOptimized computes cosine distance at the database layer via the
// sqlite-vec extension. Results arrive sorted and limited by SQL.
func (s *SQLiteStore) searchOptimized(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	blob := serializeVector(vector)

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, file_path, symbol_name, content, description,
			content_hash, vector, dimension, provider, model, start_line, end_line,
			1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM entries
		ORDER BY similarity DESC, chunk_id
		LIMIT ?`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var e Entry
		var hashBlob, vectorBlob []byte
		var score float64
		if err := rows.Scan(&e.ChunkID, &e.FilePath, &e.SymbolName, &e.Content, &e.Description,
			&hashBlob, &vectorBlob, &e.Dimension, &e.Provider, &e.Model,
			&e.StartLine, &e.EndLine, &score); err != nil {
			return nil, err
		}
		copy(e.ContentHash[:], hashBlob)
		if e.Vector, err = deserializeVector(vectorBlob); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ChunkID, err)
		}
		hits = append(hits, Hit{Entry: &e, Score: score})
	}
	return hits, rows.Err()
}

// searchFallback scans all entries and ranks them with Go-computed cosine
// similarity. Used for purego builds; adequate for single-workspace scale.
func (s *SQLiteStore) searchFallback(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx, entrySelect)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if len(e.Vector) != len(vector) {
			continue // entry from a different embedding model
		}
		hits = append(hits, Hit{Entry: e, Score: cosineSimilarity(vector, e.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Ties break on chunk ID so identical stores rank identically.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.ChunkID < hits[j].Entry.ChunkID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// serializeVector converts a float32 slice to a little-endian byte blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice. A blob
// whose length is not a whole number of float32 values is corrupt.
func deserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not a whole number of float32 values", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing.
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing.
func DeserializeVector(blob []byte) ([]float32, error) {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing.
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
