package httpclient_adapter

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/url"
	"time"
)

// Env is the connection environment for a single request.
//
// The caller owns the Env and may mutate it between calls. The adapter only reads it.
// Fields that affect how a Client is constructed (see RequestOptions and SSLOptions) are part of
// the connection cache key; everything else (method, URL, body, headers, multipart boundary) can
// change freely without invalidating a cached Client.
type Env struct {
	Method         string
	URL            *url.URL
	Body           []byte
	RequestHeaders http.Header

	SSL     SSLOptions
	Request RequestOptions
}

// RequestOptions holds per-request settings.
//
// Zero values mean "not set":
//   - Timeout: blanket timeout applied to connect, send and receive
//   - OpenTimeout: connect timeout
//   - WriteTimeout: send timeout
//   - ReadTimeout: receive timeout
//   - Boundary: multipart boundary, only used to build a Content-Type header
//   - Proxy: proxy to route the request through
//   - Bind: local address to bind outgoing sockets to
type RequestOptions struct {
	Timeout      time.Duration
	OpenTimeout  time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	Boundary string

	Proxy ProxyOptions
	Bind  BindOptions
}

// ProxyOptions configures an HTTP proxy. An empty URI means no proxy.
type ProxyOptions struct {
	URI      string
	User     string
	Password string
}

// BindOptions configures local socket binding. An empty Host and zero Port means no binding.
type BindOptions struct {
	Host string
	Port int
}

func (b BindOptions) isSet() bool {
	return b.Host != "" || b.Port != 0
}

// SSLOptions configures TLS for https requests.
//
// ClientCert takes precedence over ClientCertFile/ClientKeyFile. CertPool takes precedence over
// CAFile. MinVersion and MaxVersion use the crypto/tls version constants.
type SSLOptions struct {
	InsecureSkipVerify bool
	ServerName         string

	CAFile   string
	CertPool *x509.CertPool

	ClientCert     *tls.Certificate
	ClientCertFile string
	ClientKeyFile  string

	MinVersion uint16
	MaxVersion uint16
}

// NewEnv returns an Env for the given method and URL with empty options.
func NewEnv(method string, target *url.URL) *Env {
	return &Env{
		Method:         method,
		URL:            target,
		RequestHeaders: make(http.Header),
	}
}
