// Package storage defines the FileStore interface the document store uses to
// persist its artifacts. Writes are all-or-nothing: a reader sees either the
// previous content of a file or the complete new content, never a mix.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing. The new content replaces the
	// old one only when Close returns nil. Abort discards it.
	Write(ctx context.Context, path string) (Writer, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Root describes where the files live, for display purposes.
	Root() string
}

// Writer is an in-progress file replacement.
type Writer interface {
	io.WriteCloser
	Abort() error
}
