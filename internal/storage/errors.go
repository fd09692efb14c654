package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidLocation is returned for an empty bucket or key, or a malformed gs:// URI.
	ErrInvalidLocation = errors.New("invalid object location")
)

// StorageError wraps object store failures with the operation and location.
type StorageError struct {
	Op      string
	Err     error
	Details string
}

func (e *StorageError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("storage: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("storage: %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapStorageError wraps err as a StorageError unless it already is one.
func WrapStorageError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}

	return &StorageError{Op: op, Err: err, Details: details}
}
