package httpclient_adapter

import (
	"time"

	log "github.com/JSainsburyPLC/go-logrus-wrapper/v2"
	"github.com/sirupsen/logrus"
)

// cacheKey holds every Env field that changes how a Client is constructed.
// The method, URL, body, headers and multipart boundary are not part of it.
type cacheKey struct {
	timeout      time.Duration
	openTimeout  time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration

	proxy ProxyOptions
	bind  BindOptions
	ssl   SSLOptions
}

func newCacheKey(env *Env) cacheKey {
	return cacheKey{
		timeout:      env.Request.Timeout,
		openTimeout:  env.Request.OpenTimeout,
		writeTimeout: env.Request.WriteTimeout,
		readTimeout:  env.Request.ReadTimeout,
		proxy:        env.Request.Proxy,
		bind:         env.Request.Bind,
		ssl:          env.SSL,
	}
}

// Connection returns the Client for env, building and caching it on first use.
//
// Envs with equal cache keys get the same *Client, so repeated requests reuse its pooled
// connections. Changing a key field (timeouts, SSL, proxy, bind) selects a different Client;
// changing anything else does not. A cached Client is returned as is, without reapplying env.
//
// Construction errors are returned to the caller and nothing is cached.
func (a *Adapter) Connection(env *Env) (*Client, error) {
	if env == nil {
		return nil, errNilEnv
	}

	key := newCacheKey(env)

	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.clients[key]; ok {
		a.metrics.recordCacheHit()
		return c, nil
	}

	a.metrics.recordCacheMiss()

	c, err := a.BuildConnection(env)
	if err != nil {
		a.metrics.recordBuildError()
		return nil, err
	}

	a.clients[key] = c
	a.metrics.setCachedClients(len(a.clients))

	log.WithFields(logrus.Fields{
		"cached_clients": len(a.clients),
	}).Debug("cached new http client")

	return c, nil
}
