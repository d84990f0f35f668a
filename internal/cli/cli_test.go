package cli

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chottu/chottu-desktop/internal/core"
	"github.com/chottu/chottu-desktop/internal/credentials"
)

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) SaveToken(token string) error {
	if token == "" {
		return &credentials.StoreError{Op: "save", Kind: credentials.ErrRejected}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memTokens) LoadToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", &credentials.StoreError{Op: "load", Kind: credentials.ErrNotFound}
	}
	return m.token, nil
}

func (m *memTokens) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// withTokens installs an in-memory token store for the test.
func withTokens(t *testing.T) *memTokens {
	t.Helper()
	tokens := &memTokens{}
	prev := newTokenStore
	newTokenStore = func() core.TokenStore { return tokens }
	t.Cleanup(func() { newTokenStore = prev })
	return tokens
}

// run executes the CLI with args against a temporary settings file.
func run(t *testing.T, settings, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	AddCommands(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--settings", settings}, args...))

	err := root.Execute()
	return out.String(), err
}

func newPairingServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/pair/start", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"pair_id": "abc123"})
	})
	r.Post("/pair/confirm", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["pair_id"] != "abc123" || body["code"] != "445566" {
			w.WriteHeader(nethttp.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid or expired code"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_token": "tok_xyz",
			"device_name":  body["device_name"],
			"scopes":       []string{"memory:read"},
		})
	})
	r.Get("/api/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/api/memory", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_xyz" {
			w.WriteHeader(nethttp.StatusUnauthorized)
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestPairCommand(t *testing.T) {
	tokens := withTokens(t)
	srv := newPairingServer(t)
	settings := filepath.Join(t.TempDir(), "config.json")

	out, err := run(t, settings, "", "pair", "445566", "--server", srv.URL, "--name", "MyLaptop")
	require.NoError(t, err)
	assert.Contains(t, out, `Paired as "MyLaptop"`)
	assert.Contains(t, out, "memory:read")

	token, err := tokens.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok_xyz", token)

	// The server is remembered, so status needs no --server.
	out, err = run(t, settings, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Reachable:   yes")
	assert.Contains(t, out, "Token valid: yes")
}

func TestPairCommandReadsCodeFromStdin(t *testing.T) {
	withTokens(t)
	srv := newPairingServer(t)
	settings := filepath.Join(t.TempDir(), "config.json")

	_, err := run(t, settings, "445566\n", "pair", "--server", srv.URL, "--name", "MyLaptop")
	require.NoError(t, err)
}

func TestPairCommandWrongCode(t *testing.T) {
	tokens := withTokens(t)
	srv := newPairingServer(t)
	settings := filepath.Join(t.TempDir(), "config.json")

	_, err := run(t, settings, "", "pair", "000000", "--server", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or expired code")

	_, err = tokens.LoadToken()
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestPairCommandWithoutServer(t *testing.T) {
	withTokens(t)
	settings := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("CHOTTU_SERVER_URL", "")

	_, err := run(t, settings, "", "pair", "445566")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server configured")
}

func TestTokenCommands(t *testing.T) {
	withTokens(t)
	settings := filepath.Join(t.TempDir(), "config.json")

	out, err := run(t, settings, "", "token", "show")
	require.NoError(t, err)
	assert.Equal(t, "Not paired\n", out)

	_, err = run(t, settings, "tok_from_stdin_123\n", "token", "set")
	require.NoError(t, err)

	out, err = run(t, settings, "", "token", "show")
	require.NoError(t, err)
	assert.Equal(t, "tok_**********_123\n", out)

	out, err = run(t, settings, "", "token", "show", "--reveal")
	require.NoError(t, err)
	assert.Equal(t, "tok_from_stdin_123\n", out)

	_, err = run(t, settings, "", "token", "clear")
	require.NoError(t, err)
	out, err = run(t, settings, "", "token", "show")
	require.NoError(t, err)
	assert.Equal(t, "Not paired\n", out)
}

func TestConfigCommands(t *testing.T) {
	withTokens(t)
	settings := filepath.Join(t.TempDir(), "config.json")

	_, err := run(t, settings, "", "config", "get", "theme")
	require.Error(t, err)

	_, err = run(t, settings, "", "config", "set", "theme", "dark")
	require.NoError(t, err)
	_, err = run(t, settings, "", "config", "set", "server_url", "https://pair.chottu.app")
	require.NoError(t, err)

	out, err := run(t, settings, "", "config", "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	out, err = run(t, settings, "", "config", "list")
	require.NoError(t, err)
	assert.Equal(t, "server_url=https://pair.chottu.app\ntheme=dark\n", out)

	_, err = run(t, settings, "", "config", "set", "device_token", "tok")
	require.Error(t, err)

	_, err = run(t, settings, "", "config", "set", "proxy_port", "abc")
	require.Error(t, err)

	require.NoError(t, func() error { _, err := run(t, settings, "", "config", "unset", "theme"); return err }())
	out, err = run(t, settings, "", "config", "list")
	require.NoError(t, err)
	assert.Equal(t, "server_url=https://pair.chottu.app\n", out)

	out, err = run(t, settings, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, settings+"\n", out)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", maskToken(""))
	assert.Equal(t, "*******", maskToken("tok_xyz"))
	assert.Equal(t, "abcd**efgh", maskToken("abcd12efgh"))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "config.json"), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Chottu Desktop")
	assert.Contains(t, out, "Settings:")
}
