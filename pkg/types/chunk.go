package types

import (
	"crypto/sha256"
	"errors"
)

// ChunkKind describes how a chunk was carved out of its file.
type ChunkKind string

const (
	ChunkSymbol    ChunkKind = "symbol"     // one top-level symbol's body
	ChunkWholeFile ChunkKind = "whole_file" // fallback when no outline is available
)

// Chunk is a contiguous span of a file's text selected for embedding.
// Chunks are created during parsing, consumed immediately by the indexing
// pass, and not retained beyond it; the durable artifact is the vector
// store entry keyed by ID.
type Chunk struct {
	// ID is the stable chunk identifier: "path#symbol" for symbol chunks,
	// the bare path for whole-file chunks.
	ID         string
	FilePath   string
	SymbolName string // empty for whole-file chunks
	Kind       ChunkKind

	Content     string
	ContentHash [32]byte
	Description string // optional generated description, filled by the indexer

	StartLine int
	EndLine   int
}

// ChunkID builds the stable identifier for a chunk of path. symbol is empty
// for whole-file chunks.
func ChunkID(path, symbol string) string {
	if symbol == "" {
		return path
	}
	return path + "#" + symbol
}

// ComputeContentHash fills ContentHash from the chunk content.
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// Validate checks the chunk is well formed.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk id is required")
	}
	if c.FilePath == "" {
		return errors.New("chunk file path is required")
	}
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine < c.StartLine {
		return errors.New("chunk line range is invalid")
	}

	var zero [32]byte
	if c.ContentHash == zero {
		return errors.New("content hash must be computed")
	}
	return nil
}
