// Package notify provides cross-platform desktop notifications for Chottu Desktop.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/logging"
)

// SettingKey turns notifications off when set to a false value.
const SettingKey = "notifications"

// Notifier handles desktop notifications.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
	mu      sync.RWMutex

	// send delivers one notification; beeep.Notify unless replaced in tests.
	send func(title, message string) error
}

// NewNotifier creates a notifier. Notifications are on unless settings
// carries notifications=false.
func NewNotifier(settings map[string]string, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	enabled := true
	if v, ok := settings[SettingKey]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			enabled = b
		}
	}
	return &Notifier{
		logger:  logger,
		enabled: enabled,
		send: func(title, message string) error {
			// Windows: toast, macOS: NSUserNotificationCenter, Linux: D-Bus.
			return beeep.Notify(title, message, "")
		},
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// Paired announces a successful pairing.
func (n *Notifier) Paired(deviceName string) {
	n.notify(constants.AppName, fmt.Sprintf("This device is now paired as %q.", truncate(deviceName, 40)))
}

// PairingFailed announces a failed pairing with the user-facing reason.
func (n *Notifier) PairingFailed(reason string) {
	n.notify("Pairing failed", truncate(reason, 120))
}

// TokenRejected tells the user the server no longer accepts the device token.
func (n *Notifier) TokenRejected() {
	n.notify(constants.AppName, "The server no longer accepts this device. Pair it again from the app.")
}

func (n *Notifier) notify(title, message string) {
	if !n.IsEnabled() {
		return
	}
	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("title", title).Msg("Failed to send notification")
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
