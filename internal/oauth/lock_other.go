//go:build !unix

package oauth

import (
	"errors"
	"fmt"
	"os"
)

// Lock is an exclusive lock held for the life of the server process. Without
// flock it is an exclusively created file that is removed on release.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates path exclusively. ErrLocked is returned when it exists.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}
	return &Lock{path: path, file: f}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if rmErr := os.Remove(l.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
