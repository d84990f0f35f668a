// Package core holds the Engine, the command surface shared by the GUI
// bindings and the CLI.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chottu/chottu-desktop/internal/api"
	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/credentials"
	"github.com/chottu/chottu-desktop/internal/events"
	"github.com/chottu/chottu-desktop/internal/http"
	"github.com/chottu/chottu-desktop/internal/logging"
	"github.com/chottu/chottu-desktop/internal/pairing"
)

// ErrPairingInProgress is returned when PairDevice is called while another
// attempt is still running.
var ErrPairingInProgress = errors.New("a pairing attempt is already in progress")

// TokenStore is the secure token storage the Engine needs.
// credentials.Store satisfies it.
type TokenStore interface {
	SaveToken(token string) error
	LoadToken() (string, error)
	ClearToken() error
}

// Options carries the Engine's collaborators. Zero values select the defaults:
// the settings file under the user config directory, the OS keyring, a new
// event bus and a no-op logger.
type Options struct {
	Settings *config.SettingsStore
	Tokens   TokenStore
	EventBus *events.EventBus
	Logger   *logging.Logger
}

// Engine is the main orchestrator for settings, token and pairing operations.
type Engine struct {
	config   *config.Config
	settings *config.SettingsStore
	tokens   TokenStore
	eventBus *events.EventBus
	logger   *logging.Logger
	mu       sync.RWMutex

	pairing atomic.Bool
}

// Status summarizes server reachability and the local pairing state.
type Status struct {
	ServerURL     string `json:"serverUrl"`
	Reachable     bool   `json:"reachable"`
	Health        string `json:"health,omitempty"`
	Paired        bool   `json:"paired"`
	TokenValid    bool   `json:"tokenValid"`
	TokenRejected bool   `json:"tokenRejected"` // server answered 401/403
	Message       string `json:"message,omitempty"`
}

// NewEngine creates a new engine instance
func NewEngine(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{
		config:   cfg,
		settings: opts.Settings,
		tokens:   opts.Tokens,
		eventBus: opts.EventBus,
		logger:   opts.Logger,
	}
	if e.settings == nil {
		e.settings = config.NewDefaultSettingsStore()
	}
	if e.tokens == nil {
		e.tokens = credentials.NewDefaultStore()
	}
	if e.eventBus == nil {
		e.eventBus = events.NewEventBus(constants.EventBusDefaultBuffer)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	return e, nil
}

// GetConfig returns a copy of the current configuration
func (e *Engine) GetConfig() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := *e.config
	return &cp
}

// Events returns the event bus for subscriptions
func (e *Engine) Events() *events.EventBus {
	return e.eventBus
}

// Settings returns the backing settings store.
func (e *Engine) Settings() *config.SettingsStore {
	return e.settings
}

// SaveSetting stores one setting. Recognised keys are validated first and
// take effect for the rest of the session; CHOTTU_* environment variables
// still win over them.
func (e *Engine) SaveSetting(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := *e.config
	if err := cp.ApplySettings(map[string]string{key: value}); err != nil {
		return err
	}
	if err := cp.ApplyEnvironment(); err != nil {
		return err
	}
	if err := e.settings.Set(key, value); err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}
	e.config = &cp

	e.eventBus.PublishSettingChanged(key, false)
	e.logger.Debug().Str("key", key).Msg("Setting saved")
	return nil
}

// LoadSetting returns one setting or config.ErrNotFound.
func (e *Engine) LoadSetting(key string) (string, error) {
	return e.settings.Get(key)
}

// DeleteSetting removes one setting. Removing an absent key is not an error.
func (e *Engine) DeleteSetting(key string) error {
	if err := e.settings.Delete(key); err != nil {
		return err
	}
	e.eventBus.PublishSettingChanged(key, true)
	return nil
}

// ListSettings returns every stored setting. A missing file yields an empty map.
func (e *Engine) ListSettings() (map[string]string, error) {
	all, err := e.settings.All()
	if errors.Is(err, config.ErrNotFound) {
		return map[string]string{}, nil
	}
	return all, err
}

// SaveToken stores a device token obtained out of band.
func (e *Engine) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if err := e.tokens.SaveToken(token); err != nil {
		return err
	}
	e.eventBus.PublishTokenChanged(true, "manual")
	e.logger.Info().Msg("Device token saved")
	return nil
}

// LoadToken reads the device token fresh from the secure store.
func (e *Engine) LoadToken() (string, error) {
	return e.tokens.LoadToken()
}

// HasToken reports whether a device token is stored.
func (e *Engine) HasToken() bool {
	token, err := e.tokens.LoadToken()
	return err == nil && token != ""
}

// ClearToken removes the stored device token, unpairing this device locally.
func (e *Engine) ClearToken() error {
	if err := e.tokens.ClearToken(); err != nil {
		return err
	}
	e.eventBus.PublishTokenChanged(false, "clear")
	e.logger.Info().Msg("Device token cleared")
	return nil
}

// PairDevice runs one pairing attempt. Empty serverURL or deviceName fall back
// to the configured values. Only one attempt may run at a time.
func (e *Engine) PairDevice(ctx context.Context, serverURL, code, deviceName string) (*pairing.Result, error) {
	if !e.pairing.CompareAndSwap(false, true) {
		return nil, ErrPairingInProgress
	}
	defer e.pairing.Store(false)

	cfg := e.GetConfig()
	if strings.TrimSpace(serverURL) == "" {
		serverURL = cfg.ServerURL
	}
	if strings.TrimSpace(deviceName) == "" {
		deviceName = cfg.DeviceName
	}

	client, err := http.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	p := pairing.New(e.tokens,
		pairing.WithHTTPClient(client),
		pairing.WithTimeout(cfg.RequestTimeout),
		pairing.WithEventBus(e.eventBus),
		pairing.WithLogger(e.logger),
	)

	res, err := p.Pair(ctx, pairing.Request{ServerURL: serverURL, PairCode: code, DeviceName: deviceName})
	if err != nil {
		e.eventBus.PublishLog(events.ErrorLevel, Describe(err), "pairing", err)
		return nil, err
	}
	e.eventBus.PublishTokenChanged(true, "pairing")

	// Remember where we paired so status checks and the next launch use it.
	// The URL may have come from a flag or the environment, so compare with
	// the stored setting rather than the resolved config.
	if base, nerr := pairing.NormalizeServerURL(serverURL); nerr == nil {
		if stored, _ := e.settings.Get(config.KeyServerURL); stored != base {
			if serr := e.SaveSetting(config.KeyServerURL, base); serr != nil {
				e.logger.Warn().Err(serr).Msg("Paired, but failed to remember server URL")
			}
		}
	}
	return res, nil
}

// IsPairing reports whether a pairing attempt is running.
func (e *Engine) IsPairing() bool {
	return e.pairing.Load()
}

// ServerStatus checks the configured server and, when a token is stored,
// whether the server still accepts it. Connection problems are reported in
// the Status rather than as an error.
func (e *Engine) ServerStatus(ctx context.Context) (*Status, error) {
	cfg := e.GetConfig()
	client, err := api.NewClient(cfg, e.tokens, e.logger)
	if err != nil {
		return nil, err
	}

	st := &Status{ServerURL: client.BaseURL(), Paired: e.HasToken()}

	h, err := client.Health(ctx)
	if err != nil {
		st.Message = Describe(err)
		return st, nil
	}
	st.Reachable = true
	st.Health = h.Status

	if !st.Paired {
		st.Message = "Device is not paired"
		return st, nil
	}
	switch err := client.CheckToken(ctx); {
	case err == nil:
		st.TokenValid = true
	case api.IsUnauthorized(err):
		st.TokenRejected = true
		st.Message = Describe(err)
	default:
		st.Message = Describe(err)
	}
	return st, nil
}
