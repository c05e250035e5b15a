// Package types provides shared domain types for the codeatlas retrieval
// engine: symbol outlines, embedding chunks, and ranked retrieval documents.
package types
