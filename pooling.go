package httpclient_adapter

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// PoolSettings configures connection pooling and transport behaviour of every Client the adapter
// builds. Each Client owns its own pool; connections are reused between requests that resolve to
// the same cached Client.
//
// Zero values use http.Transport defaults.
//
// Connection pool limits:
//   - MaxIdleConns: Maximum idle connections across all hosts (default: 100)
//   - MaxIdleConnsPerHost: Maximum idle connections per host (default: 2)
//   - MaxConnsPerHost: Maximum total connections per host, 0 = unlimited (default: 0)
//
// Idle connection lifetime and TLS handshake timeout are not pool settings; see Config.
//
// Fine-grained timeouts:
//   - ResponseHeaderTimeout: Maximum time to wait for response headers (default: 0, no timeout)
//   - ExpectContinueTimeout: Maximum time to wait for 100-continue response (default: 1s)
//
// HTTP/2:
//   - HTTP2ReadIdleTimeout: send a health check ping after this long without frames (default: 0, off)
//   - HTTP2PingTimeout: close the connection when the ping is not answered in time (default: 15s)
//
// Advanced settings:
//   - DisableKeepAlives: Disable HTTP keep-alives (default: false)
//   - DisableCompression: Disable transparent gzip decompression (default: false)
//   - MaxResponseHeaderBytes: Maximum response header size, 0 = 10MB (default: 0)
type PoolSettings struct {
	MaxIdleConns        int `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int `yaml:"max_conns_per_host"`

	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout"`

	HTTP2ReadIdleTimeout time.Duration `yaml:"http2_read_idle_timeout"`
	HTTP2PingTimeout     time.Duration `yaml:"http2_ping_timeout"`

	DisableKeepAlives      bool  `yaml:"disable_keep_alives"`
	DisableCompression     bool  `yaml:"disable_compression"`
	MaxResponseHeaderBytes int64 `yaml:"max_response_header_bytes"`
}

func newBaseTransport(settings *PoolSettings) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if settings == nil {
		return transport
	}

	if settings.MaxIdleConns > 0 {
		transport.MaxIdleConns = settings.MaxIdleConns
	}
	if settings.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = settings.MaxIdleConnsPerHost
	}
	if settings.MaxConnsPerHost != 0 {
		transport.MaxConnsPerHost = settings.MaxConnsPerHost
	}
	if settings.ResponseHeaderTimeout > 0 {
		transport.ResponseHeaderTimeout = settings.ResponseHeaderTimeout
	}
	if settings.ExpectContinueTimeout > 0 {
		transport.ExpectContinueTimeout = settings.ExpectContinueTimeout
	}
	transport.DisableKeepAlives = settings.DisableKeepAlives
	transport.DisableCompression = settings.DisableCompression
	if settings.MaxResponseHeaderBytes > 0 {
		transport.MaxResponseHeaderBytes = settings.MaxResponseHeaderBytes
	}

	return transport
}

// configureHTTP2 enables HTTP/2 health checks on the transport. It must run after TLSClientConfig
// and DialContext are set and at most once per transport.
func configureHTTP2(transport *http.Transport, settings *PoolSettings) (*http2.Transport, error) {
	if settings == nil || settings.HTTP2ReadIdleTimeout <= 0 {
		return nil, nil
	}

	h2, err := http2.ConfigureTransports(transport)
	if err != nil {
		return nil, err
	}

	h2.ReadIdleTimeout = settings.HTTP2ReadIdleTimeout
	if settings.HTTP2PingTimeout > 0 {
		h2.PingTimeout = settings.HTTP2PingTimeout
	}

	return h2, nil
}
