package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/chottu/chottu-desktop/internal/config"
)

// NewClient returns the client used for pairing and API calls.
//
// It is ConfigureHTTPClient plus HTTP/2 setup on plain transports. Set
// DISABLE_HTTP2=true to force HTTP/1.1. HTTP/2 is also disabled whenever a
// proxy is active, since many corporate proxies mishandle it.
// A nil cfg yields a direct (no proxy) client.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	// NTLM wraps the transport; leave it untouched.
	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		return client, nil
	}

	proxyActive := tr.Proxy != nil
	if os.Getenv("DISABLE_HTTP2") == "true" || proxyActive {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
		return client, nil
	}

	enableHTTP2(tr)

	return client, nil
}

// enableHTTP2 turns on HTTP/2 for tr. On failure the transport stays usable
// over HTTP/1.1.
func enableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = true
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Debug().Err(err).Msg("HTTP/2 setup failed - continuing with HTTP/1.1")
	}
}
