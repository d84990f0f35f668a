package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/chottu/chottu-desktop/internal/constants"
)

var (
	// ErrNotFound is returned when the settings file or the requested key is absent.
	ErrNotFound = errors.New("setting not found")

	// ErrReservedKey is returned when a caller tries to store a secret-bearing key
	// (the device token) in the plaintext settings file.
	ErrReservedKey = errors.New("key is reserved for the secure credential store")

	// ErrEmptyKey is returned for an empty setting key.
	ErrEmptyKey = errors.New("setting key is empty")
)

// SettingsStore is a flat string-to-string map persisted as one JSON object file.
//
// Every Set reads the whole file, updates one key and rewrites the file
// atomically. Writers inside one process are serialized; writers in separate
// processes may race (last rename wins).
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

// NewSettingsStore creates a store backed by the file at path.
// The file and its directory are created lazily on the first Set.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// NewDefaultSettingsStore creates a store at GetDefaultSettingsPath().
func NewDefaultSettingsStore() *SettingsStore {
	return NewSettingsStore(GetDefaultSettingsPath())
}

// Path returns the backing file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Set stores value under key, keeping every other entry.
// A missing or unreadable file is treated as an empty map.
func (s *SettingsStore) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.read()
	if err != nil || settings == nil {
		// Corrupt file: start over rather than refusing every future write.
		settings = map[string]string{}
	}
	settings[key] = value

	return s.write(settings)
}

// Get returns the value stored under key.
// Returns ErrNotFound if the file does not exist or the key is absent.
func (s *SettingsStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.read()
	if err != nil {
		return "", err
	}
	value, ok := settings[key]
	if !ok {
		return "", fmt.Errorf("setting '%s': %w", key, ErrNotFound)
	}
	return value, nil
}

// Delete removes key from the file. Deleting an absent key is not an error.
func (s *SettingsStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.read()
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := settings[key]; !ok {
		return nil
	}
	delete(settings, key)
	return s.write(settings)
}

// All returns a copy of every stored entry.
// Returns ErrNotFound if the settings file does not exist.
func (s *SettingsStore) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

// Keys returns the stored keys in sorted order.
func (s *SettingsStore) Keys() ([]string, error) {
	settings, err := s.All()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// read loads the map. Caller must hold s.mu.
func (s *SettingsStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("settings file %s: %w", s.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := map[string]string{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}
	if settings == nil {
		// A literal null decodes to a nil map.
		settings = map[string]string{}
	}
	return settings, nil
}

// write persists the map via a temp file and rename. Caller must hold s.mu.
func (s *SettingsStore) write(settings map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if key == constants.KeyringTokenAccount {
		return fmt.Errorf("setting '%s': %w", key, ErrReservedKey)
	}
	return nil
}
