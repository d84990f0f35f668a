package pairing

import (
	"errors"
	"fmt"
)

// Kind classifies a pairing failure by remediation.
type Kind int

const (
	// KindNetwork: the server could not be reached, timed out, the attempt
	// was cancelled, or the server failed with a 5xx. Check the network/server.
	KindNetwork Kind = iota + 1

	// KindProtocol: the server answered but rejected the request (4xx) or the
	// reply was not the expected JSON. Check the pairing code / server version.
	KindProtocol

	// KindStorage: the server paired the device but the token could not be
	// saved locally. Check OS credential store permissions and pair again.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNetwork  = errors.New("could not reach pairing server")
	ErrProtocol = errors.New("pairing server rejected the request or replied unexpectedly")
	ErrStorage  = errors.New("could not save device token")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindProtocol:
		return ErrProtocol
	case KindStorage:
		return ErrStorage
	default:
		return nil
	}
}

// Error is returned by Pair for every failure.
type Error struct {
	Kind       Kind
	Step       string // "validate", "start", "confirm", "persist"
	Msg        string // short reason, e.g. "invalid pair_id"
	StatusCode int    // HTTP status when the server answered, else 0
	Err        error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pairing %s failed (%s): %s", e.Step, e.Kind, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind of a pairing error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

func networkError(step, msg string, err error) *Error {
	return &Error{Kind: KindNetwork, Step: step, Msg: msg, Err: err}
}

func protocolError(step, msg string, err error) *Error {
	return &Error{Kind: KindProtocol, Step: step, Msg: msg, Err: err}
}
