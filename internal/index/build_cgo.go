//go:build sqlite_cgo

package index

// Compiled with the sqlite_cgo tag. Uses the C SQLite driver, which opens
// large index files noticeably faster than the pure Go implementation.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver used for the local index file.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
