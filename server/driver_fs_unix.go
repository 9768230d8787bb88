//go:build unix

package server

import "golang.org/x/sys/unix"

// checkSearchable reports EACCES when the process may not enter dir.
func checkSearchable(dir string) error {
	return unix.Access(dir, unix.X_OK)
}
