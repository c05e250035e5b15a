//go:build sqlite_vec
// +build sqlite_vec

package store

// Compiled when building with CGO and the sqlite_vec tag. The sqlite-vec
// extension computes cosine distance at the database layer.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if the vector extension is available.
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
