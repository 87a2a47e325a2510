package httpclient_adapter

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// newTLSConfig builds the transport TLS config and resolves the client certificate, loading it from
// disk when only file paths are given.
func newTLSConfig(opts SSLOptions) (*tls.Config, *tls.Certificate, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // caller opt-in
		ServerName:         opts.ServerName,
		MinVersion:         opts.MinVersion,
		MaxVersion:         opts.MaxVersion,
	}

	if cfg.MinVersion == 0 && (cfg.MaxVersion == 0 || cfg.MaxVersion >= tls.VersionTLS12) {
		cfg.MinVersion = tls.VersionTLS12
	}

	switch {
	case opts.CertPool != nil:
		cfg.RootCAs = opts.CertPool
	case opts.CAFile != "":
		pool, err := loadCertPool(opts.CAFile)
		if err != nil {
			return nil, nil, err
		}
		cfg.RootCAs = pool
	}

	cert := opts.ClientCert
	if cert == nil && opts.ClientCertFile != "" {
		keyFile := opts.ClientKeyFile
		if keyFile == "" {
			keyFile = opts.ClientCertFile
		}

		loaded, err := tls.LoadX509KeyPair(opts.ClientCertFile, keyFile)
		if err != nil {
			return nil, nil, err
		}
		cert = &loaded
	}

	if cert != nil {
		cfg.Certificates = []tls.Certificate{*cert}
	}

	return cfg, cert, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in ca file %q", path)
	}

	return pool, nil
}
