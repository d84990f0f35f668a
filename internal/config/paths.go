// Package config provides configuration management for Chottu Desktop.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/chottu/chottu-desktop/internal/constants"
)

// ConfigDirectory returns the per-user application config directory.
//
// Locations:
//   - Windows: %APPDATA%\Chottu
//   - macOS: ~/Library/Application Support/Chottu
//   - Linux: $XDG_CONFIG_HOME/Chottu (usually ~/.config/Chottu)
func ConfigDirectory() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.ConfigDirName)
		}
		return filepath.Join(homeDir, ".config", constants.ConfigDirName)
	}
	return filepath.Join(configDir, constants.ConfigDirName)
}

// GetDefaultSettingsPath returns the path of the flat JSON settings file.
func GetDefaultSettingsPath() string {
	return filepath.Join(ConfigDirectory(), constants.SettingsFileName)
}

// LogDirectory returns the directory for GUI log files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\Chottu\logs
//   - Unix: <config dir>/Chottu/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "chottu-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, constants.ConfigDirName, "logs")
	}
	return filepath.Join(ConfigDirectory(), "logs")
}
