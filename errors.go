package httpclient_adapter

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
)

// Errors returned by Adapter.Call. They are joined with the underlying error, so both
// errors.Is(err, ErrTimeout) and errors.Is(err, context.DeadlineExceeded) hold for a timeout.
var (
	ErrTimeout          = errors.New("request timed out")
	ErrSSL              = errors.New("ssl error")
	ErrConnectionFailed = errors.New("connection failed")
)

var errNilEnv = errors.New("env must not be nil")

func classifyError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if isSSLError(err) {
		return fmt.Errorf("%w: %w", ErrSSL, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isSSLError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)

	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}
