package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/chottu/chottu-desktop/internal/credentials"
	"github.com/chottu/chottu-desktop/internal/events"
)

// fakeServer mimics the pairing endpoints. Handlers can be swapped per test.
type fakeServer struct {
	srv *httptest.Server

	startCalls   atomic.Int32
	confirmCalls atomic.Int32

	mu          sync.Mutex
	confirmBody map[string]any
	requestIDs  []string

	start   nethttp.HandlerFunc
	confirm nethttp.HandlerFunc
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newFakeServer serves pair_id "abc123" and issues "tok_xyz" for code "445566".
func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.setStart(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"pair_id": "abc123", "code": "445566"})
	})
	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		f.mu.Lock()
		body := f.confirmBody
		f.mu.Unlock()
		if body["pair_id"] != "abc123" || body["code"] != "445566" {
			writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": "Invalid or expired code"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"device_token": "tok_xyz",
			"scopes":       []string{"memory:read", "memory:write"},
			"device_name":  body["device_name"],
		})
	})

	r := chi.NewRouter()
	r.Post("/pair/start", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		f.startCalls.Add(1)
		f.recordID(r)
		f.mu.Lock()
		h := f.start
		f.mu.Unlock()
		h(w, r)
	})
	r.Post("/pair/confirm", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		f.confirmCalls.Add(1)
		f.recordID(r)
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		f.mu.Lock()
		f.confirmBody = body
		h := f.confirm
		f.mu.Unlock()
		h(w, r)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) recordID(r *nethttp.Request) {
	f.mu.Lock()
	f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-ID"))
	f.mu.Unlock()
}

func (f *fakeServer) URL() string { return f.srv.URL }

func (f *fakeServer) setStart(h nethttp.HandlerFunc) {
	f.mu.Lock()
	f.start = h
	f.mu.Unlock()
}

func (f *fakeServer) setConfirm(h nethttp.HandlerFunc) {
	f.mu.Lock()
	f.confirm = h
	f.mu.Unlock()
}

func (f *fakeServer) lastConfirmBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmBody
}

func (f *fakeServer) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestIDs...)
}

// memTokens is an in-memory TokenSaver.
type memTokens struct {
	mu    sync.Mutex
	token string
	saves int
	err   error
}

func (m *memTokens) SaveToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.token = token
	m.saves++
	return nil
}

func (m *memTokens) get() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.saves
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var pe *Error
	require.True(t, errors.As(err, &pe), "expected *pairing.Error, got %T: %v", err, err)
	require.Equal(t, kind, pe.Kind, "error: %v", err)
	return pe
}

func TestPair_ConcreteScenario(t *testing.T) {
	keyring.MockInit()
	store := credentials.NewStore(nil, "Chottu-Desktop-test", "device_token")

	f := newFakeServer(t)
	p := New(store)

	res, err := p.Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	require.NoError(t, err)
	assert.Equal(t, "tok_xyz", res.Token)
	assert.Equal(t, "abc123", res.PairID)
	assert.Equal(t, "MyLaptop", res.DeviceName)
	assert.Equal(t, []string{"memory:read", "memory:write"}, res.Scopes)

	stored, err := store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok_xyz", stored)

	assert.Equal(t, int32(1), f.startCalls.Load())
	assert.Equal(t, int32(1), f.confirmCalls.Load())

	// Exactly the three wire fields, with "code" rather than "pair_code".
	assert.Equal(t, map[string]any{
		"pair_id":     "abc123",
		"code":        "445566",
		"device_name": "MyLaptop",
	}, f.lastConfirmBody())
}

func TestPairDevice_ReturnsToken(t *testing.T) {
	f := newFakeServer(t)
	tokens := &memTokens{}

	token, err := New(tokens).PairDevice(context.Background(), f.URL(), "445566", "MyLaptop")
	require.NoError(t, err)
	assert.Equal(t, "tok_xyz", token)

	stored, saves := tokens.get()
	assert.Equal(t, "tok_xyz", stored)
	assert.Equal(t, 1, saves)
}

func TestPair_TrailingSlashAndWhitespace(t *testing.T) {
	f := newFakeServer(t)
	tokens := &memTokens{}

	_, err := New(tokens).Pair(context.Background(), Request{
		ServerURL:  "  " + f.URL() + "//  ",
		PairCode:   " 445566 ",
		DeviceName: "MyLaptop",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.startCalls.Load())
}

func TestPair_StartWithoutPairID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"number", `{"pair_id": 42}`},
		{"null", `{"pair_id": null}`},
		{"empty", `{"pair_id": ""}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeServer(t)
			f.setStart(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(nethttp.StatusOK)
				_, _ = io.WriteString(w, tt.body)
			})
			tokens := &memTokens{token: "previous"}

			_, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
			pe := requireKind(t, err, KindProtocol)
			assert.Equal(t, "start", pe.Step)
			assert.Equal(t, "invalid pair_id", pe.Msg)
			assert.True(t, errors.Is(err, ErrProtocol))

			assert.Equal(t, int32(0), f.confirmCalls.Load(), "confirm must not be called")
			stored, saves := tokens.get()
			assert.Equal(t, "previous", stored)
			assert.Zero(t, saves)
		})
	}
}

func TestPair_ConfirmWithoutTokenKeepsPrevious(t *testing.T) {
	f := newFakeServer(t)
	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"scopes": []string{"memory:read"}})
	})
	tokens := &memTokens{token: "tok_old"}

	_, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	pe := requireKind(t, err, KindProtocol)
	assert.Equal(t, "confirm", pe.Step)
	assert.Equal(t, "invalid device_token", pe.Msg)

	stored, saves := tokens.get()
	assert.Equal(t, "tok_old", stored)
	assert.Zero(t, saves)
}

func TestPair_ConfirmTokenWrongType(t *testing.T) {
	f := newFakeServer(t)
	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"device_token": 12345})
	})
	tokens := &memTokens{}

	_, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	pe := requireKind(t, err, KindProtocol)
	assert.Equal(t, "invalid device_token", pe.Msg)
	_, saves := tokens.get()
	assert.Zero(t, saves)
}

func TestPair_ConfirmIgnoresMalformedDeviceName(t *testing.T) {
	f := newFakeServer(t)
	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"device_token": "tok_xyz",
			"device_name":  map[string]string{"label": "x"},
			"scopes":       42,
		})
	})
	tokens := &memTokens{}

	res, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	require.NoError(t, err)
	assert.Equal(t, "MyLaptop", res.DeviceName)
	assert.Nil(t, res.Scopes)

	stored, saves := tokens.get()
	assert.Equal(t, "tok_xyz", stored)
	assert.Equal(t, 1, saves)
}

func TestPair_ConfirmUsesServerDeviceName(t *testing.T) {
	f := newFakeServer(t)
	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"device_token": "tok_xyz", "device_name": "Work Laptop"})
	})

	res, err := New(&memTokens{}).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	require.NoError(t, err)
	assert.Equal(t, "Work Laptop", res.DeviceName)
}

func TestPair_RepairOverwrites(t *testing.T) {
	keyring.MockInit()
	store := credentials.NewStore(nil, "Chottu-Desktop-test", "device_token")

	var next atomic.Value
	next.Store("tok_A")
	f := newFakeServer(t)
	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"device_token": next.Load()})
	})
	p := New(store)

	_, err := p.Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "1", DeviceName: "MyLaptop"})
	require.NoError(t, err)
	next.Store("tok_B")
	_, err = p.Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "2", DeviceName: "MyLaptop"})
	require.NoError(t, err)

	stored, err := store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok_B", stored)
}

func TestPair_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		step     string
		status   int
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{"start 404", "start", 404, ``, KindProtocol, "server returned 404 Not Found"},
		{"start 503", "start", 503, ``, KindNetwork, "server returned 503 Service Unavailable"},
		{"confirm 400 with error", "confirm", 400, `{"error":"Invalid or expired code"}`, KindProtocol, "server returned 400: Invalid or expired code"},
		{"confirm 500", "confirm", 500, `{"error":"boom"}`, KindNetwork, "server returned 500: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeServer(t)
			h := func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}
			if tt.step == "start" {
				f.setStart(h)
			} else {
				f.setConfirm(h)
			}
			tokens := &memTokens{}

			_, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
			pe := requireKind(t, err, tt.wantKind)
			assert.Equal(t, tt.step, pe.Step)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.wantMsg, pe.Msg)

			_, saves := tokens.get()
			assert.Zero(t, saves)
		})
	}
}

func TestPair_WrongCodeRejected(t *testing.T) {
	f := newFakeServer(t)
	tokens := &memTokens{}

	_, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "000000", DeviceName: "MyLaptop"})
	pe := requireKind(t, err, KindProtocol)
	assert.Contains(t, pe.Msg, "Invalid or expired code")
}

func TestPair_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(&memTokens{}).Pair(context.Background(), Request{ServerURL: url, PairCode: "445566", DeviceName: "MyLaptop"})
	pe := requireKind(t, err, KindNetwork)
	assert.Equal(t, "start", pe.Step)
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestPair_StorageFailure(t *testing.T) {
	f := newFakeServer(t)
	storeErr := errors.New("keychain locked")
	tokens := &memTokens{err: storeErr}

	_, err := New(tokens).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	pe := requireKind(t, err, KindStorage)
	assert.Equal(t, "persist", pe.Step)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, storeErr))
	assert.Equal(t, int32(1), f.confirmCalls.Load())
}

func TestPair_CancelledBeforeStart(t *testing.T) {
	f := newFakeServer(t)
	tokens := &memTokens{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(tokens).Pair(ctx, Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	requireKind(t, err, KindNetwork)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), f.confirmCalls.Load())
	_, saves := tokens.get()
	assert.Zero(t, saves)
}

func TestPair_CancelledDuringConfirm(t *testing.T) {
	f := newFakeServer(t)
	tokens := &memTokens{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.setConfirm(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		cancel()
		writeJSON(w, nethttp.StatusOK, map[string]any{"device_token": "tok_late"})
	})

	_, err := New(tokens).Pair(ctx, Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	requireKind(t, err, KindNetwork)
	assert.True(t, errors.Is(err, context.Canceled))

	stored, saves := tokens.get()
	assert.Empty(t, stored)
	assert.Zero(t, saves)
}

func TestPair_Timeout(t *testing.T) {
	f := newFakeServer(t)
	f.setStart(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	tokens := &memTokens{}

	_, err := New(tokens, WithTimeout(50*time.Millisecond)).Pair(context.Background(),
		Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	requireKind(t, err, KindNetwork)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPair_InvalidInput(t *testing.T) {
	f := newFakeServer(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty server", Request{ServerURL: "", PairCode: "1", DeviceName: "d"}},
		{"ftp server", Request{ServerURL: "ftp://example.com", PairCode: "1", DeviceName: "d"}},
		{"relative server", Request{ServerURL: "example.com/pair", PairCode: "1", DeviceName: "d"}},
		{"empty code", Request{ServerURL: f.URL(), PairCode: "  ", DeviceName: "d"}},
		{"empty device", Request{ServerURL: f.URL(), PairCode: "1", DeviceName: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&memTokens{}).Pair(context.Background(), tt.req)
			pe := requireKind(t, err, KindProtocol)
			assert.Equal(t, "validate", pe.Step)
		})
	}
	assert.Equal(t, int32(0), f.startCalls.Load())
}

func TestPair_RequestIDSharedAcrossSteps(t *testing.T) {
	f := newFakeServer(t)

	_, err := New(&memTokens{}).Pair(context.Background(), Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	require.NoError(t, err)

	ids := f.ids()
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
	_, err = uuid.Parse(ids[0])
	assert.NoError(t, err)
}

func drainStates(ch <-chan events.Event) []string {
	var got []string
	for {
		select {
		case ev := <-ch:
			got = append(got, ev.(*events.PairingStateEvent).To)
		default:
			return got
		}
	}
}

func TestPair_PublishesTransitions(t *testing.T) {
	f := newFakeServer(t)
	bus := events.NewEventBus(0)
	defer bus.Close()
	ch := bus.Subscribe(events.EventPairingState)

	_, err := New(&memTokens{}, WithEventBus(bus)).Pair(context.Background(),
		Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	require.NoError(t, err)

	assert.Equal(t, []string{"starting", "started", "confirming", "confirmed", "persisting", "done"}, drainStates(ch))
}

func TestPair_PublishesFailure(t *testing.T) {
	f := newFakeServer(t)
	f.setStart(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{})
	})
	bus := events.NewEventBus(0)
	defer bus.Close()
	ch := bus.Subscribe(events.EventPairingState)

	_, err := New(&memTokens{}, WithEventBus(bus)).Pair(context.Background(),
		Request{ServerURL: f.URL(), PairCode: "445566", DeviceName: "MyLaptop"})
	require.Error(t, err)

	assert.Equal(t, []string{"starting", "failed"}, drainStates(ch))
}

func TestParseScopes(t *testing.T) {
	assert.Nil(t, parseScopes(nil))
	assert.Equal(t, []string{"a", "b"}, parseScopes(json.RawMessage(`["a","b"]`)))
	assert.Equal(t, []string{"a", "b"}, parseScopes(json.RawMessage(`"a, b"`)))
	assert.Nil(t, parseScopes(json.RawMessage(`42`)))
}

func TestNormalizeServerURL(t *testing.T) {
	got, err := NormalizeServerURL(" https://pair.chottu.app/ ")
	require.NoError(t, err)
	assert.Equal(t, "https://pair.chottu.app", got)

	got, err = NormalizeServerURL("http://localhost:3000/base/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/base", got)

	_, err = NormalizeServerURL("://bad")
	assert.Error(t, err)
}
