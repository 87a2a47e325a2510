package httpclient_adapter

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
)

func proxyFunc(opts ProxyOptions) (func(*http.Request) (*url.URL, error), error) {
	if opts.URI == "" {
		return http.ProxyFromEnvironment, nil
	}

	u, err := url.Parse(opts.URI)
	if err != nil {
		return nil, err
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy uri %q: scheme and host are required", opts.URI)
	}

	if opts.User != "" {
		u.User = url.UserPassword(opts.User, opts.Password)
	}

	return http.ProxyURL(u), nil
}

func bindAddr(opts BindOptions) (net.Addr, error) {
	if !opts.isSet() {
		return nil, nil
	}

	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, err
	}

	return addr, nil
}
