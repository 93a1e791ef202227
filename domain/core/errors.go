package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound         = errors.New("resource not found")
	ErrSnapshotNotFound = fmt.Errorf("%w: snapshot", ErrNotFound)

	// ErrColumnMismatch marks a table whose stored columns disagree with
	// its header
	ErrColumnMismatch = errors.New("row column count does not match header")
)

// IsNotFoundError reports whether err wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
