//go:build !sqlite_cgo

package index

// Compiled by default. Uses the pure Go SQLite driver for the local index
// file, so cross-compiling the server needs no C toolchain.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver used for the local index file.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
