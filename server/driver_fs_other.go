//go:build !unix

package server

func checkSearchable(string) error {
	return nil
}
