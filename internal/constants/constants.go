// Package constants holds the fixed identifiers and tuning values shared across
// the desktop shell. Values that address external state (keyring entries, the
// settings file) are injected into the adapters that use them rather than
// referenced directly at call sites.
package constants

import "time"

// Application identity
const (
	// AppName is the user-facing product name (window title, log lines).
	AppName = "Chottu Desktop"

	// BinaryName is the executable and cobra root command name.
	BinaryName = "chottu-desktop"

	// ConfigDirName is the per-user directory under the OS config dir.
	ConfigDirName = "Chottu"

	// SettingsFileName is the flat JSON settings map inside ConfigDirName.
	SettingsFileName = "config.json"

	// LogFileName is the GUI-mode log file inside the log directory.
	LogFileName = "chottu-desktop.log"

	// EnvPrefix is the prefix for environment overrides (CHOTTU_SERVER_URL, ...).
	EnvPrefix = "CHOTTU"
)

// Secure credential store addressing
const (
	// KeyringService is the service name of every keyring entry we own.
	KeyringService = "Chottu-Desktop"

	// KeyringTokenAccount is the account key of the device token entry.
	// The settings store refuses this key so the token never lands in plaintext.
	KeyringTokenAccount = "device_token"
)

// Pairing protocol endpoints, relative to the server base URL
const (
	PairStartPath   = "/pair/start"
	PairConfirmPath = "/pair/confirm"
	HealthPath      = "/api/health"

	// TokenCheckPath is an authenticated endpoint used only to verify that
	// the stored device token is still accepted by the server.
	TokenCheckPath = "/api/memory"
)

// Pairing limits
const (
	// PairAttemptTimeout bounds one start+confirm+persist attempt.
	PairAttemptTimeout = 30 * time.Second

	// MaxResponseBytes caps how much of a pairing/API response body is read.
	MaxResponseBytes = 1 << 20

	// RequestIDHeader carries the per-attempt UUID for server-side log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Event bus configuration
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 100

	// EventBusMaxBuffer - cap for caller-supplied buffer sizes
	EventBusMaxBuffer = 1000
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (15 seconds)
	HTTPTLSHandshakeTimeout = 15 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (10 seconds)
	HTTPDialTimeout = 10 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPClientTimeout - overall client timeout; pairing adds its own ctx deadline
	HTTPClientTimeout = 60 * time.Second

	// ProxyWarmupTimeout - warmup request deadline
	ProxyWarmupTimeout = 15 * time.Second
)

// API client retry settings (health and token checks only; pairing never retries)
const (
	APIRetryMax     = 3
	APIRetryWaitMin = 500 * time.Millisecond
	APIRetryWaitMax = 5 * time.Second
)
