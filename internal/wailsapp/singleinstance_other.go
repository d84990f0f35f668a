//go:build !windows

package wailsapp

// EnsureSingleInstance on non-Windows platforms always returns true.
// macOS app bundles already activate the running instance, and Linux
// desktops leave window focus to the user.
func EnsureSingleInstance() bool {
	return true
}
