//go:build !unix

package blobstore

import "os"

// lockFile only creates the lock file where flock is unavailable.
func lockFile(p string) (func() error, error) {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return f.Close, nil
}
