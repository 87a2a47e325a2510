package httpclient_adapter

import (
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type socketTimeouts interface {
	SendTimeout() time.Duration
	ReceiveTimeout() time.Duration
}

// deadlineConn arms a fresh deadline before every Read and Write. A zero timeout clears the deadline.
//
// Read deadlines only apply while the connection carries a request. A pooled connection waiting
// for its next request reads without a deadline, so it lives until the transport's idle timeout.
type deadlineConn struct {
	net.Conn
	timeouts socketTimeouts

	mu       sync.Mutex
	inFlight int
}

func (d *deadlineConn) Read(p []byte) (int, error) {
	d.mu.Lock()
	err := d.Conn.SetReadDeadline(d.readDeadline())
	d.mu.Unlock()
	if err != nil {
		return 0, err
	}

	return d.Conn.Read(p)
}

func (d *deadlineConn) Write(p []byte) (int, error) {
	if err := d.Conn.SetWriteDeadline(deadline(d.timeouts.SendTimeout())); err != nil {
		return 0, err
	}

	return d.Conn.Write(p)
}

// acquire marks a request in flight and arms the read deadline of a read that is already pending.
func (d *deadlineConn) acquire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight++
	_ = d.Conn.SetReadDeadline(d.readDeadline())
}

// release ends a request. Once none is in flight the read deadline is cleared.
func (d *deadlineConn) release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight > 0 {
		d.inFlight--
	}
	_ = d.Conn.SetReadDeadline(d.readDeadline())
}

// readDeadline must be called with mu held.
func (d *deadlineConn) readDeadline() time.Time {
	if d.inFlight == 0 {
		return time.Time{}
	}

	return deadline(d.timeouts.ReceiveTimeout())
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}

	return time.Now().Add(timeout)
}

// trackedConn returns the deadlineConn under conn, looking through TLS.
func trackedConn(conn net.Conn) *deadlineConn {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}

	dc, _ := conn.(*deadlineConn)
	return dc
}

// connTracker marks the connection of every round trip as in flight until the response body is
// read to the end or closed, or the round trip fails.
type connTracker struct {
	next http.RoundTripper
}

func (t *connTracker) RoundTrip(req *http.Request) (*http.Response, error) {
	lease := &connLease{}
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			lease.set(trackedConn(info.Conn))
		},
	}

	resp, err := t.next.RoundTrip(req.WithContext(httptrace.WithClientTrace(req.Context(), trace)))
	if err != nil {
		lease.release()
		return nil, err
	}

	body := &leasedBody{ReadCloser: resp.Body, lease: lease}
	if w, ok := resp.Body.(io.Writer); ok {
		resp.Body = &leasedReadWriteBody{leasedBody: body, Writer: w}
	} else {
		resp.Body = body
	}

	return resp, nil
}

// connLease holds the connection a round trip is using. The transport may report a second
// connection when it retries on a fresh one, the first is released then.
type connLease struct {
	mu   sync.Mutex
	conn *deadlineConn
	done bool
}

func (l *connLease) set(conn *deadlineConn) {
	if conn == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	if l.conn != nil {
		l.conn.release()
	}

	conn.acquire()
	l.conn = conn
}

func (l *connLease) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	l.done = true

	if l.conn != nil {
		l.conn.release()
	}
}

type leasedBody struct {
	io.ReadCloser
	lease *connLease
}

func (b *leasedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil {
		b.lease.release()
	}

	return n, err
}

func (b *leasedBody) Close() error {
	b.lease.release()
	return b.ReadCloser.Close()
}

// leasedReadWriteBody keeps the body writable, as it is for CONNECT and protocol switches.
type leasedReadWriteBody struct {
	*leasedBody
	io.Writer
}
