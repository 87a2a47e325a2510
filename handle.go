package httpclient_adapter

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// Defaults of the underlying client. A Client starts with these values and keeps them for every
// field a request does not override.
const (
	DefaultConnectTimeout   = 60 * time.Second
	DefaultSendTimeout      = 120 * time.Second
	DefaultReceiveTimeout   = 60 * time.Second
	DefaultKeepAliveTimeout = 15 * time.Second
	DefaultSSLTimeout       = 10 * time.Second

	dialKeepAlive = 30 * time.Second
)

// SSLConfig is the TLS configuration a Client was built with.
type SSLConfig struct {
	Timeout    time.Duration
	ClientCert *tls.Certificate
}

// Client is a configured, reusable HTTP client handle.
//
// Clients are returned by Adapter.Connection and are shared: every caller whose Env maps to the same
// cache key gets the same *Client. Treat a returned Client as a non-owned reference.
//
// The connect timeout bounds dialing. The send and receive timeouts are deadlines applied to each
// individual write and read on the underlying connection, so they bound how long a single socket
// operation may stall rather than the whole request. Reads are only bounded while a request is in
// flight, so a pooled idle connection stays open until the keep-alive timeout. All three are read
// when used, so changes apply to the next dial or socket operation.
type Client struct {
	mu             sync.RWMutex
	connectTimeout time.Duration
	sendTimeout    time.Duration
	receiveTimeout time.Duration

	keepAliveTimeout time.Duration
	sslConfig        SSLConfig
	localAddr        net.Addr

	transport *http.Transport
	http      *http.Client
}

func newHandle(keepAlive time.Duration, ssl SSLConfig, localAddr net.Addr) *Client {
	return &Client{
		connectTimeout:   DefaultConnectTimeout,
		sendTimeout:      DefaultSendTimeout,
		receiveTimeout:   DefaultReceiveTimeout,
		keepAliveTimeout: keepAlive,
		sslConfig:        ssl,
		localAddr:        localAddr,
	}
}

// ConnectTimeout returns the dial timeout.
func (c *Client) ConnectTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectTimeout
}

// SendTimeout returns the per-write timeout.
func (c *Client) SendTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sendTimeout
}

// ReceiveTimeout returns the per-read timeout.
func (c *Client) ReceiveTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.receiveTimeout
}

// SetConnectTimeout sets the dial timeout.
func (c *Client) SetConnectTimeout(d time.Duration) {
	c.mu.Lock()
	c.connectTimeout = d
	c.mu.Unlock()
}

// SetSendTimeout sets the per-write timeout.
func (c *Client) SetSendTimeout(d time.Duration) {
	c.mu.Lock()
	c.sendTimeout = d
	c.mu.Unlock()
}

// SetReceiveTimeout sets the per-read timeout.
func (c *Client) SetReceiveTimeout(d time.Duration) {
	c.mu.Lock()
	c.receiveTimeout = d
	c.mu.Unlock()
}

// KeepAliveTimeout returns how long idle connections are kept open for reuse.
func (c *Client) KeepAliveTimeout() time.Duration {
	return c.keepAliveTimeout
}

// SSLConfig returns a copy of the TLS configuration the client was built with.
func (c *Client) SSLConfig() SSLConfig {
	return c.sslConfig
}

// Do sends an HTTP request through the client's transport chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// CloseIdleConnections closes any pooled connections that are not in use.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   c.ConnectTimeout(),
		KeepAlive: dialKeepAlive,
		LocalAddr: c.localAddr,
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	return &deadlineConn{Conn: conn, timeouts: c}, nil
}
