package credentials

import (
	"errors"
	"fmt"
)

// Error kinds. Callers branch with errors.Is(err, ErrNotFound) etc.
var (
	// ErrNotFound indicates no token has been stored, or it was cleared.
	ErrNotFound = errors.New("device token not found")

	// ErrUnavailable indicates the platform secret service could not be reached or opened.
	ErrUnavailable = errors.New("secure credential store unavailable")

	// ErrRejected indicates the platform refused the write (permission, policy, size).
	ErrRejected = errors.New("secure credential store rejected the write")
)

// StoreError records the failed operation, its kind and the platform error.
type StoreError struct {
	Op   string // "save", "load", "clear"
	Kind error  // one of ErrNotFound, ErrUnavailable, ErrRejected
	Err  error  // underlying platform error, may be nil
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s token: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s token: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the platform error to errors.Is/As.
func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
