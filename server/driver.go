package server

import (
	"errors"
	"io"
)

var (
	// ErrNotDirectory is returned by ChangeDir when the target exists but is
	// not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory is returned by OpenFile when the name refers to a
	// directory.
	ErrIsDirectory = errors.New("is a directory")
)

// Driver gives each session its own view of the filesystem.
//
// Implementations should:
//   - Return a fresh ClientContext per session, so that a "cd" in one
//     session never changes the working directory of another
//   - Return os.ErrNotExist, os.ErrPermission, ErrNotDirectory or
//     ErrIsDirectory (or errors wrapping them) so the server can pick the
//     right message for the requester
//
// To serve something other than the local disk, implement this interface.
type Driver interface {
	// NewContext returns the filesystem context for a new session.
	NewContext() (ClientContext, error)
}

// ClientContext is the per-session filesystem state. It holds the working
// directory that "cd" changes and that "list", "get" and "pwd" use.
//
// A ClientContext is used by one session goroutine only.
type ClientContext interface {
	// ChangeDir changes the working directory. Relative paths are resolved
	// against the current one.
	ChangeDir(path string) error

	// GetWd returns the working directory.
	GetWd() (string, error)

	// ListDir returns the names of the entries in the working directory,
	// without "." and "..".
	ListDir() ([]string, error)

	// OpenFile opens a file for reading. Relative names are resolved against
	// the working directory. An empty name does not exist.
	OpenFile(name string) (io.ReadCloser, error)

	// Close releases any resources associated with this context.
	Close() error
}
