package core

import (
	"context"
	"errors"

	"github.com/chottu/chottu-desktop/internal/api"
	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/credentials"
	"github.com/chottu/chottu-desktop/internal/pairing"
)

// Describe turns an error into the message shown to the user. The three
// pairing kinds map to distinct remediation hints.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var pe *pairing.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case pairing.KindNetwork:
			if errors.Is(err, context.DeadlineExceeded) {
				return "Could not reach the pairing server: the request timed out"
			}
			if errors.Is(err, context.Canceled) {
				return "Pairing was cancelled"
			}
			return "Could not reach the pairing server: " + pe.Msg
		case pairing.KindProtocol:
			return "The server rejected the pairing request: " + pe.Msg
		case pairing.KindStorage:
			return "The device was paired but the token could not be saved: " + storageHint(pe.Err)
		}
	}

	switch {
	case errors.Is(err, ErrPairingInProgress):
		return "A pairing attempt is already running"
	case errors.Is(err, api.ErrUnauthorized):
		return "The server no longer accepts this device's token; pair again"
	case errors.Is(err, credentials.ErrNotFound):
		return "This device is not paired"
	case errors.Is(err, credentials.ErrUnavailable), errors.Is(err, credentials.ErrRejected):
		return "Secure storage error: " + storageHint(err)
	case errors.Is(err, config.ErrReservedKey):
		return "The device token cannot be stored as a setting"
	case errors.Is(err, config.ErrNotFound):
		return "Setting not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "Could not reach the server: the request timed out"
	}
	return err.Error()
}

func storageHint(err error) string {
	switch {
	case errors.Is(err, credentials.ErrUnavailable):
		return "the system credential store is not available"
	case errors.Is(err, credentials.ErrRejected):
		return "the system credential store refused the token"
	case err != nil:
		return err.Error()
	default:
		return "unknown error"
	}
}
