package cache

import (
	"errors"
	"fmt"
)

// SyncError reports an optimistic-concurrency failure: a caller supplied an
// object whose CacheVersion no longer matches the cached copy, or attempted
// to place an object on a lattice point another object already occupies.
// internal/node maps this to the wire protocol's retry_later result, the Go
// equivalent of the original's synchronization_exception.
type SyncError struct {
	ID     interface{}
	Reason string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("cache: synchronization conflict on %v: %s", e.ID, e.Reason)
}

// IsSyncError reports whether err is (or wraps) a *SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}

// NotFoundError reports that an identifier has no cached object.
type NotFoundError struct {
	ID interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cache: no object with id %v", e.ID)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// LockError reports misuse of the update-scope protocol: an operation that
// requires a held Session was called without one, or with a Session that
// does not belong to the calling goroutine's update scope.
type LockError struct {
	Reason string
}

func (e *LockError) Error() string {
	return fmt.Sprintf("cache: locking protocol violation: %s", e.Reason)
}
