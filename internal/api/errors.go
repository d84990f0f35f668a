package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the server refused the stored device token.
// The device has to be paired again.
var ErrUnauthorized = errors.New("device token rejected by server")

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err means the device token is no longer valid.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
