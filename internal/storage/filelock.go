package storage

import (
	"fmt"
	"os"
	"syscall"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// LockPath returns the advisory lock file guarding the document at path.
func LockPath(path string) string {
	return path + ".lock"
}

// LockFile acquires an exclusive advisory lock (LOCK_EX) on path, creating
// the file if needed. The returned function releases the lock. Separate
// mustdo processes serialize their load-mutate-save cycles through it.
func LockFile(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w: %v", models.ErrIO, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring file lock: %w: %v", models.ErrIO, err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
