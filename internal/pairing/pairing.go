// Package pairing performs the two-step device pairing handshake.
//
// An attempt posts to {base}/pair/start to obtain a pair_id, posts the
// user's pair code to {base}/pair/confirm, and hands the returned device
// token to a TokenSaver. Nothing is retried and the token is only written
// after both calls succeed.
package pairing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/events"
	"github.com/chottu/chottu-desktop/internal/http"
	"github.com/chottu/chottu-desktop/internal/logging"
)

// TokenSaver persists the device token. credentials.Store satisfies it.
type TokenSaver interface {
	SaveToken(token string) error
}

// Request is the input of one pairing attempt.
type Request struct {
	ServerURL  string
	PairCode   string
	DeviceName string
}

// Result is what the server granted. Token has already been persisted when
// a Result is returned.
type Result struct {
	Token      string
	PairID     string
	DeviceName string
	Scopes     []string
}

// Pairer runs pairing attempts. It is safe for concurrent use; attempts do
// not share state.
type Pairer struct {
	client  *nethttp.Client
	tokens  TokenSaver
	timeout time.Duration
	bus     *events.EventBus
	logger  *logging.Logger
}

// Option configures a Pairer.
type Option func(*Pairer)

// WithHTTPClient sets the client used for both handshake calls.
func WithHTTPClient(c *nethttp.Client) Option {
	return func(p *Pairer) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout bounds a whole attempt. Zero disables the bound and leaves
// cancellation to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Pairer) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithEventBus publishes every state transition on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(p *Pairer) { p.bus = bus }
}

// WithLogger sets the logger. Tokens and pair codes are never logged.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pairer) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Pairer that stores tokens through tokens.
func New(tokens TokenSaver, opts ...Option) *Pairer {
	p := &Pairer{
		tokens:  tokens,
		timeout: constants.PairAttemptTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		client, err := http.NewClient(nil)
		if err != nil {
			client = &nethttp.Client{}
		}
		p.client = client
	}
	return p
}

type startResponse struct {
	PairID string `json:"pair_id"`
}

type confirmRequest struct {
	PairID     string `json:"pair_id"`
	Code       string `json:"code"`
	DeviceName string `json:"device_name"`
}

type confirmResponse struct {
	DeviceToken string          `json:"device_token"`
	DeviceName  json.RawMessage `json:"device_name,omitempty"`
	Scopes      json.RawMessage `json:"scopes,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// PairDevice runs one attempt and returns the new device token.
func (p *Pairer) PairDevice(ctx context.Context, serverURL, code, deviceName string) (string, error) {
	res, err := p.Pair(ctx, Request{ServerURL: serverURL, PairCode: code, DeviceName: deviceName})
	if err != nil {
		return "", err
	}
	return res.Token, nil
}

// Pair runs one attempt: start, confirm, persist. Any failure returns an
// *Error and leaves the token store untouched.
func (p *Pairer) Pair(ctx context.Context, req Request) (*Result, error) {
	a := p.newAttempt()

	base, err := NormalizeServerURL(req.ServerURL)
	if err != nil {
		return nil, a.fail(protocolError("validate", "invalid server URL", err))
	}
	code := strings.TrimSpace(req.PairCode)
	if code == "" {
		return nil, a.fail(protocolError("validate", "pair code is empty", nil))
	}
	name := strings.TrimSpace(req.DeviceName)
	if name == "" {
		return nil, a.fail(protocolError("validate", "device name is empty", nil))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	a.log.Info().Str("server", base).Str("device_name", name).Msg("Pairing device")

	a.transition(StateStarting)
	var start startResponse
	if err := p.post(ctx, a, "start", base+constants.PairStartPath, nil, &start); err != nil {
		return nil, a.fail(err)
	}
	if start.PairID == "" {
		return nil, a.fail(protocolError("start", "invalid pair_id", nil))
	}
	a.log.Debug().Str("pair_id", start.PairID).Msg("Pairing session opened")
	a.transition(StateStarted)

	a.transition(StateConfirming)
	body := confirmRequest{PairID: start.PairID, Code: code, DeviceName: name}
	var confirm confirmResponse
	if err := p.post(ctx, a, "confirm", base+constants.PairConfirmPath, body, &confirm); err != nil {
		return nil, a.fail(err)
	}
	if confirm.DeviceToken == "" {
		return nil, a.fail(protocolError("confirm", "invalid device_token", nil))
	}
	a.transition(StateConfirmed)

	// A cancel that lands after confirm still wins: nothing is written.
	if err := ctx.Err(); err != nil {
		return nil, a.fail(networkError("persist", "attempt cancelled before saving token", err))
	}

	a.transition(StatePersisting)
	if err := p.tokens.SaveToken(confirm.DeviceToken); err != nil {
		return nil, a.fail(&Error{Kind: KindStorage, Step: "persist", Msg: "token store refused the token", Err: err})
	}
	a.transition(StateDone)

	res := &Result{
		Token:      confirm.DeviceToken,
		PairID:     start.PairID,
		DeviceName: name,
		Scopes:     parseScopes(confirm.Scopes),
	}
	if granted := parseDeviceName(confirm.DeviceName); granted != "" {
		res.DeviceName = granted
	}
	a.log.Info().Str("device_name", res.DeviceName).Strs("scopes", res.Scopes).Msg("Device paired")
	return res, nil
}

// post sends one handshake call and decodes a 2xx JSON reply into out.
func (p *Pairer) post(ctx context.Context, a *attempt, step, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return protocolError(step, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, endpoint, reader)
	if err != nil {
		return protocolError(step, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(constants.RequestIDHeader, a.id)

	resp, err := p.client.Do(req)
	if err != nil {
		return networkError(step, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBytes))
	if err != nil {
		return networkError(step, "failed to read response", err)
	}

	a.log.Debug().Str("step", step).Int("status", resp.StatusCode).Msg("Pairing server replied")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := serverMessage(data, resp.StatusCode)
		kind := KindProtocol
		if resp.StatusCode >= 500 {
			kind = KindNetwork
		}
		return &Error{Kind: kind, Step: step, Msg: msg, StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(data, out); err != nil {
		field := "pair_id"
		if step == "confirm" {
			field = "device_token"
		}
		return protocolError(step, "invalid "+field, err)
	}
	return nil
}

// serverMessage prefers the {"error": "..."} body the server sends on failure.
func serverMessage(data []byte, status int) string {
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Sprintf("server returned %d: %s", status, e.Error)
	}
	return fmt.Sprintf("server returned %d %s", status, nethttp.StatusText(status))
}

// parseScopes accepts a JSON string array or a single space/comma separated
// string. Anything else yields nil; scopes are informational only.
func parseScopes(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return nil
}

// parseDeviceName returns the server's name for the device, or "" when the
// field is absent or not a string.
func parseDeviceName(raw json.RawMessage) string {
	var name string
	if len(raw) == 0 || json.Unmarshal(raw, &name) != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

// NormalizeServerURL trims whitespace and trailing slashes and requires an
// absolute http(s) URL.
func NormalizeServerURL(raw string) (string, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if s == "" {
		return "", errors.New("server URL is empty")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q (want http or https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %q has no host", s)
	}
	return s, nil
}

// attempt tracks the state of one Pair call.
type attempt struct {
	id    string
	state State
	log   zerolog.Logger
	bus   *events.EventBus
}

func (p *Pairer) newAttempt() *attempt {
	id := uuid.NewString()
	return &attempt{
		id:    id,
		state: StateIdle,
		log:   p.logger.With().Str("component", "pairing").Str("attempt", id).Logger(),
		bus:   p.bus,
	}
}

func (a *attempt) transition(to State) {
	a.move(to, nil)
}

func (a *attempt) move(to State, err error) {
	from := a.state
	if !canTransition(from, to) {
		a.log.Error().Str("from", string(from)).Str("to", string(to)).Msg("Illegal pairing transition")
		return
	}
	a.state = to
	a.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Pairing state")
	if a.bus != nil {
		a.bus.PublishPairingState(a.id, string(from), string(to), err)
	}
}

// fail moves the attempt to failed and returns err for the caller.
func (a *attempt) fail(err error) error {
	a.log.Warn().Err(err).Str("state", string(a.state)).Msg("Pairing failed")
	a.move(StateFailed, err)
	return err
}
