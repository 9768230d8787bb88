package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// FSDriver implements Driver using the local filesystem.
//
// Every session starts in the root path and may change to any directory the
// process can enter; the root is a starting point, not a jail. Reported paths
// are absolute and have symlinks resolved, as getcwd would report them.
type FSDriver struct {
	rootPath string
}

// NewFSDriver creates a filesystem driver whose sessions start in rootPath.
// Returns an error if rootPath does not exist or is not a directory.
//
//	driver, err := server.NewFSDriver(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewFSDriver(rootPath string) (*FSDriver, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path validation failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", rootPath)
	}

	rootPath, err = filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	rootPath, err = filepath.EvalSymlinks(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	return &FSDriver{rootPath: rootPath}, nil
}

// RootPath returns the directory sessions start in.
func (d *FSDriver) RootPath() string {
	return d.rootPath
}

// NewContext returns a context whose working directory is the root path.
func (d *FSDriver) NewContext() (ClientContext, error) {
	return &fsContext{cwd: d.rootPath}, nil
}

// fsContext implements ClientContext for the local filesystem.
type fsContext struct {
	cwd string
}

// resolve makes path absolute against the working directory. The empty
// path stays empty so that it fails to open like any missing name.
func (c *fsContext) resolve(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.cwd, path)
}

// ChangeDir verifies the destination is an enterable directory before
// switching to it.
func (c *fsContext) ChangeDir(path string) error {
	target := c.resolve(path)
	if target == "" {
		return &fs.PathError{Op: "chdir", Path: path, Err: fs.ErrNotExist}
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			return &fs.PathError{Op: "chdir", Path: path, Err: ErrNotDirectory}
		}
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "chdir", Path: path, Err: ErrNotDirectory}
	}
	if err := checkSearchable(target); err != nil {
		return &fs.PathError{Op: "chdir", Path: path, Err: err}
	}

	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	c.cwd = target
	return nil
}

// GetWd returns the working directory.
func (c *fsContext) GetWd() (string, error) {
	return c.cwd, nil
}

// ListDir returns the entry names of the working directory in name order.
func (c *fsContext) ListDir() ([]string, error) {
	entries, err := os.ReadDir(c.cwd)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// OpenFile opens name read-only.
func (c *fsContext) OpenFile(name string) (io.ReadCloser, error) {
	f, err := os.Open(c.resolve(name))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrIsDirectory}
	}
	return f, nil
}

// Close is a no-op; the context holds no open handles.
func (c *fsContext) Close() error {
	return nil
}
