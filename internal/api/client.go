// Package api is the client for authenticated calls to the Chottu server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/http"
	"github.com/chottu/chottu-desktop/internal/logging"
)

// TokenLoader reads the device token. It is called on every request so a
// re-pair or clear takes effect immediately.
type TokenLoader interface {
	LoadToken() (string, error)
}

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client represents the Chottu server API client
type Client struct {
	httpClient *nethttp.Client
	retry      *retryablehttp.Client
	baseURL    string
	tokens     TokenLoader
	logger     *logging.Logger
}

// Health is the reply of the public health endpoint.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewClient creates a new API client for cfg.ServerURL. tokens may be nil
// when only Health is needed.
func NewClient(cfg *config.Config, tokens TokenLoader, logger *logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("api: nil config")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if baseURL == "" {
		return nil, errors.New("server URL is empty: set server_url or pass --server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	// Configure HTTP client with proxy support
	httpClient, err := http.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	// Wrap with retry logic
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.APIRetryMax
	retryClient.RetryWaitMin = constants.APIRetryWaitMin
	retryClient.RetryWaitMax = constants.APIRetryWaitMax
	retryClient.Logger = &retryLogger{logger: logger}

	return &Client{
		httpClient: retryClient.StandardClient(),
		retry:      retryClient,
		baseURL:    baseURL,
		tokens:     tokens,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs a GET, adding the bearer token when authenticated is set.
func (c *Client) doRequest(ctx context.Context, path string, authenticated bool) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(constants.RequestIDHeader, uuid.NewString())

	if authenticated {
		if c.tokens == nil {
			return nil, errors.New("no token source configured")
		}
		token, err := c.tokens.LoadToken()
		if err != nil {
			return nil, fmt.Errorf("failed to load device token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Health calls the public health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.doRequest(ctx, constants.HealthPath, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, statusError("health check", resp)
	}

	var h Health
	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.MaxResponseBytes)).Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &h, nil
}

// CheckToken makes an authenticated call and reports whether the server
// still accepts the stored token. A 401 or 403 yields ErrUnauthorized.
func (c *Client) CheckToken(ctx context.Context) error {
	resp, err := c.doRequest(ctx, constants.TokenCheckPath, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, constants.MaxResponseBytes))

	switch {
	case resp.StatusCode == nethttp.StatusUnauthorized, resp.StatusCode == nethttp.StatusForbidden:
		return fmt.Errorf("token check: %w", ErrUnauthorized)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return &StatusError{Op: "token check", StatusCode: resp.StatusCode}
	}
}

func statusError(op string, resp *nethttp.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}
