package session

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock is an acquired single-instance lock for a database path.
type Lock struct {
	flock *flock.Flock
}

// TryLock acquires the lock file next to dbPath. It returns (nil, false, nil)
// when another process already holds it.
func TryLock(dbPath string) (*Lock, bool, error) {
	lockPath := dbPath + ".lock"

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("try lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{flock: fl}, true, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.flock.Path() }

// Release releases the lock.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
