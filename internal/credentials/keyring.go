package credentials

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Keyring is the minimal view of an OS secret store: one secret per
// (service, account) pair.
type Keyring interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

// OSKeyring stores secrets in the platform credential store
// (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
type OSKeyring struct{}

// Get implements Keyring.
func (OSKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

// Set implements Keyring.
func (OSKeyring) Set(service, account, value string) error {
	return keyring.Set(service, account, value)
}

// Delete implements Keyring.
func (OSKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// classify maps a platform error onto one of the kind sentinels.
// Platform backends report policy refusals only as text, so the
// fallback is string matching.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := ErrUnavailable
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, keyring.ErrSetDataTooBig), errors.Is(err, os.ErrPermission):
		kind = ErrRejected
	default:
		errStr := strings.ToLower(err.Error())
		if op == "save" && (strings.Contains(errStr, "denied") ||
			strings.Contains(errStr, "not allowed") ||
			strings.Contains(errStr, "permission") ||
			strings.Contains(errStr, "policy")) {
			kind = ErrRejected
		}
	}

	return &StoreError{Op: op, Kind: kind, Err: err}
}
