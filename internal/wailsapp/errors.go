// Package wailsapp provides common error definitions.
package wailsapp

import (
	"errors"

	"github.com/chottu/chottu-desktop/internal/core"
)

// ErrNoEngine is returned when engine is not initialized.
var ErrNoEngine = errors.New("engine not initialized")

// userError converts an engine error into the message the frontend shows.
// Wails rejects the JS promise with the error string.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(core.Describe(err))
}
