package wailsapp

import (
	"context"
	"strconv"

	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/core"
	"github.com/chottu/chottu-desktop/internal/notify"
	"github.com/chottu/chottu-desktop/internal/version"
)

// AppInfoDTO contains application version and status information.
type AppInfoDTO struct {
	Version      string `json:"version"`
	BuildTime    string `json:"buildTime"`
	SettingsPath string `json:"settingsPath"`
	LogDirectory string `json:"logDirectory"`
	Paired       bool   `json:"paired"`
}

// PairResultDTO is returned to the frontend after a successful pairing.
// The token is deliberately left out.
type PairResultDTO struct {
	DeviceName string   `json:"deviceName"`
	Scopes     []string `json:"scopes"`
}

// ServerStatusDTO is the JSON-safe version of core.Status.
type ServerStatusDTO struct {
	ServerURL     string `json:"serverUrl"`
	Reachable     bool   `json:"reachable"`
	Health        string `json:"health,omitempty"`
	Paired        bool   `json:"paired"`
	TokenValid    bool   `json:"tokenValid"`
	TokenRejected bool   `json:"tokenRejected"`
	Message       string `json:"message,omitempty"`
}

// GetAppInfo returns version and file locations.
func (a *App) GetAppInfo() AppInfoDTO {
	info := AppInfoDTO{
		Version:      version.Version,
		BuildTime:    version.BuildTime,
		LogDirectory: config.LogDirectory(),
	}
	if a.engine != nil {
		info.SettingsPath = a.engine.Settings().Path()
		info.Paired = a.engine.HasToken()
	}
	return info
}

// SaveConfig stores one setting.
func (a *App) SaveConfig(key, value string) error {
	if a.engine == nil {
		return ErrNoEngine
	}
	if err := a.engine.SaveSetting(key, value); err != nil {
		return userError(err)
	}
	if key == notify.SettingKey {
		if enabled, err := strconv.ParseBool(value); err == nil {
			a.notifier.SetEnabled(enabled)
		}
	}
	return nil
}

// LoadConfig returns one setting.
func (a *App) LoadConfig(key string) (string, error) {
	if a.engine == nil {
		return "", ErrNoEngine
	}
	v, err := a.engine.LoadSetting(key)
	return v, userError(err)
}

// ListConfig returns every stored setting.
func (a *App) ListConfig() (map[string]string, error) {
	if a.engine == nil {
		return nil, ErrNoEngine
	}
	all, err := a.engine.ListSettings()
	return all, userError(err)
}

// SaveToken stores a device token entered by hand.
func (a *App) SaveToken(token string) error {
	if a.engine == nil {
		return ErrNoEngine
	}
	return userError(a.engine.SaveToken(token))
}

// LoadToken returns the stored device token.
func (a *App) LoadToken() (string, error) {
	if a.engine == nil {
		return "", ErrNoEngine
	}
	token, err := a.engine.LoadToken()
	return token, userError(err)
}

// ClearToken unpairs this device locally.
func (a *App) ClearToken() error {
	if a.engine == nil {
		return ErrNoEngine
	}
	return userError(a.engine.ClearToken())
}

// PairDevice runs one pairing attempt. Progress is reported through
// chottu:pairing_state events; CancelPairing aborts it.
func (a *App) PairDevice(serverURL, code, deviceName string) (PairResultDTO, error) {
	if a.engine == nil {
		return PairResultDTO{}, ErrNoEngine
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.pairMu.Lock()
	owner := a.pairCancel == nil
	if owner {
		a.pairCancel = cancel
	}
	a.pairMu.Unlock()
	defer func() {
		if owner {
			a.pairMu.Lock()
			a.pairCancel = nil
			a.pairMu.Unlock()
		}
		cancel()
	}()

	res, err := a.engine.PairDevice(ctx, serverURL, code, deviceName)
	if err != nil {
		if a.hidden.Load() {
			a.notifier.PairingFailed(core.Describe(err))
		}
		return PairResultDTO{}, userError(err)
	}
	if a.hidden.Load() {
		a.notifier.Paired(res.DeviceName)
	}
	return PairResultDTO{DeviceName: res.DeviceName, Scopes: res.Scopes}, nil
}

// CancelPairing aborts a running pairing attempt. Nothing is stored.
func (a *App) CancelPairing() {
	a.pairMu.Lock()
	defer a.pairMu.Unlock()
	if a.pairCancel != nil {
		a.pairCancel()
	}
}

// ServerStatus reports server reachability and token validity.
func (a *App) ServerStatus() (ServerStatusDTO, error) {
	if a.engine == nil {
		return ServerStatusDTO{}, ErrNoEngine
	}
	st, err := a.engine.ServerStatus(a.ctx)
	if err != nil {
		return ServerStatusDTO{}, userError(err)
	}
	if st.TokenRejected && a.hidden.Load() {
		a.notifier.TokenRejected()
	}
	return ServerStatusDTO(*st), nil
}

// ShowWindow shows and focuses the main window.
func (a *App) ShowWindow() {
	a.hidden.Store(false)
	if a.window != nil {
		a.window.Show()
	}
}

// HideWindow hides the main window without quitting.
func (a *App) HideWindow() {
	a.hidden.Store(true)
	if a.window != nil {
		a.window.Hide()
	}
}

// Quit closes the window and exits.
func (a *App) Quit() {
	a.quitting.Store(true)
	if a.window != nil {
		a.window.Quit()
	}
}
