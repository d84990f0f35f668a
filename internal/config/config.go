package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/chottu/chottu-desktop/internal/constants"
)

// Setting keys understood by Load. Any other key in the settings file is
// stored and returned verbatim but has no effect on Config.
const (
	KeyServerURL      = "server_url"
	KeyDeviceName     = "device_name"
	KeyProxyMode      = "proxy_mode"
	KeyProxyHost      = "proxy_host"
	KeyProxyPort      = "proxy_port"
	KeyProxyUser      = "proxy_user"
	KeyNoProxy        = "no_proxy"
	KeyProxyWarmup    = "proxy_warmup"
	KeyRequestTimeout = "request_timeout"
)

// Proxy modes
const (
	ProxyModeNone   = "no-proxy"
	ProxyModeSystem = "system"
	ProxyModeBasic  = "basic"
	ProxyModeNTLM   = "ntlm"
)

// Config is the resolved runtime configuration.
//
// Resolution order (later wins): defaults, settings file, CHOTTU_* environment,
// CLI flags (applied by the caller).
type Config struct {
	ServerURL  string
	DeviceName string

	ProxyMode     string
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // environment only, never written to the settings file
	NoProxy       string
	ProxyWarmup   bool

	// RequestTimeout bounds one pairing attempt and each API call.
	RequestTimeout time.Duration

	Debug bool
}

// envOverrides is processed by envconfig with the CHOTTU prefix,
// e.g. CHOTTU_SERVER_URL, CHOTTU_PROXY_PORT, CHOTTU_REQUEST_TIMEOUT=45s.
type envOverrides struct {
	ServerURL      string         `split_words:"true"`
	DeviceName     string         `split_words:"true"`
	ProxyMode      string         `split_words:"true"`
	ProxyHost      string         `split_words:"true"`
	ProxyPort      int            `split_words:"true"`
	ProxyUser      string         `split_words:"true"`
	ProxyPassword  string         `split_words:"true"`
	NoProxy        string         `split_words:"true"`
	RequestTimeout *time.Duration `split_words:"true"` // nil when unset; 0 disables
	Debug          bool           `split_words:"true"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		DeviceName:     defaultDeviceName(),
		ProxyMode:      ProxyModeNone,
		RequestTimeout: constants.PairAttemptTimeout,
	}
}

// Load resolves a Config from defaults, the settings store and the environment.
// A missing settings file is not an error. store may be nil.
func Load(store *SettingsStore) (*Config, error) {
	cfg := NewConfig()

	if store != nil {
		settings, err := store.All()
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, err
		default:
			if err := cfg.ApplySettings(settings); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnvironment(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplySettings overlays recognised keys from a settings map.
func (c *Config) ApplySettings(settings map[string]string) error {
	if v, ok := settings[KeyServerURL]; ok && v != "" {
		c.ServerURL = v
	}
	if v, ok := settings[KeyDeviceName]; ok && v != "" {
		c.DeviceName = v
	}
	if v, ok := settings[KeyProxyMode]; ok && v != "" {
		c.ProxyMode = strings.ToLower(v)
	}
	if v, ok := settings[KeyProxyHost]; ok {
		c.ProxyHost = v
	}
	if v, ok := settings[KeyProxyPort]; ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid %s %q", KeyProxyPort, v)
		}
		c.ProxyPort = port
	}
	if v, ok := settings[KeyProxyUser]; ok {
		c.ProxyUser = v
	}
	if v, ok := settings[KeyNoProxy]; ok {
		c.NoProxy = v
	}
	if v, ok := settings[KeyProxyWarmup]; ok && v != "" {
		warmup, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q", KeyProxyWarmup, v)
		}
		c.ProxyWarmup = warmup
	}
	if v, ok := settings[KeyRequestTimeout]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid %s %q", KeyRequestTimeout, v)
		}
		c.RequestTimeout = d
	}
	return nil
}

// ApplyEnvironment overlays CHOTTU_* environment variables.
func (c *Config) ApplyEnvironment() error {
	var env envOverrides
	if err := envconfig.Process(constants.EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if env.ServerURL != "" {
		c.ServerURL = env.ServerURL
	}
	if env.DeviceName != "" {
		c.DeviceName = env.DeviceName
	}
	if env.ProxyMode != "" {
		c.ProxyMode = strings.ToLower(env.ProxyMode)
	}
	if env.ProxyHost != "" {
		c.ProxyHost = env.ProxyHost
	}
	if env.ProxyPort != 0 {
		c.ProxyPort = env.ProxyPort
	}
	if env.ProxyUser != "" {
		c.ProxyUser = env.ProxyUser
	}
	if env.ProxyPassword != "" {
		c.ProxyPassword = env.ProxyPassword
	}
	if env.NoProxy != "" {
		c.NoProxy = env.NoProxy
	}
	if env.RequestTimeout != nil {
		if *env.RequestTimeout < 0 {
			return fmt.Errorf("invalid %s_REQUEST_TIMEOUT %q", constants.EnvPrefix, env.RequestTimeout.String())
		}
		c.RequestTimeout = *env.RequestTimeout
	}
	if env.Debug {
		c.Debug = true
	}
	return nil
}

// Validate checks fields that would otherwise fail later with a less useful error.
func (c *Config) Validate() error {
	switch c.ProxyMode {
	case ProxyModeNone, "", ProxyModeSystem, ProxyModeBasic, ProxyModeNTLM:
	default:
		return fmt.Errorf("unsupported proxy mode: %s", c.ProxyMode)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	return nil
}

func defaultDeviceName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "desktop"
	}
	return name
}
