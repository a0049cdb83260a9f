// Package lockedfile provides an inter-process mutex backed by an advisory
// lock on a file.
package lockedfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// A Mutex provides mutual exclusion across processes. The zero value is not
// usable; create one with MutexAt.
type Mutex struct {
	path string
}

// MutexAt returns a Mutex locking the file at path, created on first use.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: empty path")
	}
	return &Mutex{path: filepath.Clean(path)}
}

func (mu *Mutex) String() string {
	return fmt.Sprintf("lockedfile.Mutex(%s)", mu.path)
}

// Lock blocks until the lock is held and returns the function releasing it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(mu.path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(mu.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", mu.path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
