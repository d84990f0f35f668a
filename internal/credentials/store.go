// Package credentials stores the device token in the OS secure credential store.
//
// Exactly one secret is managed, addressed by a fixed (service, account) pair
// supplied at construction. There is no in-memory cache: every LoadToken goes
// to the platform store. Keyring calls may block on a local platform service;
// callers on a UI thread should invoke them from a separate goroutine.
package credentials

import (
	"errors"

	"github.com/chottu/chottu-desktop/internal/constants"
)

// Store is the credential store adapter for the device token.
type Store struct {
	ring    Keyring
	service string
	account string
}

// NewStore creates a Store for the given keyring entry.
// A nil ring uses the OS keyring.
func NewStore(ring Keyring, service, account string) *Store {
	if ring == nil {
		ring = OSKeyring{}
	}
	return &Store{
		ring:    ring,
		service: service,
		account: account,
	}
}

// NewDefaultStore creates a Store on the OS keyring at the application's fixed entry.
func NewDefaultStore() *Store {
	return NewStore(OSKeyring{}, constants.KeyringService, constants.KeyringTokenAccount)
}

// Service returns the keyring service name.
func (s *Store) Service() string { return s.service }

// Account returns the keyring account key.
func (s *Store) Account() string { return s.account }

// SaveToken overwrites the stored token.
// Fails with ErrRejected for an empty token or a refused write,
// ErrUnavailable if the platform store cannot be reached.
func (s *Store) SaveToken(token string) error {
	if token == "" {
		return &StoreError{Op: "save", Kind: ErrRejected, Err: errors.New("token is empty")}
	}
	return classify("save", s.ring.Set(s.service, s.account, token))
}

// LoadToken returns the stored token.
// Fails with ErrNotFound if nothing is stored, ErrUnavailable on platform failure.
func (s *Store) LoadToken() (string, error) {
	token, err := s.ring.Get(s.service, s.account)
	if err != nil {
		return "", classify("load", err)
	}
	if token == "" {
		return "", &StoreError{Op: "load", Kind: ErrNotFound}
	}
	return token, nil
}

// ClearToken removes the stored token. Clearing an absent token succeeds.
func (s *Store) ClearToken() error {
	err := classify("clear", s.ring.Delete(s.service, s.account))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// HasToken reports whether a token is currently stored.
func (s *Store) HasToken() bool {
	_, err := s.LoadToken()
	return err == nil
}
