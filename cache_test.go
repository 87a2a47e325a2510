package httpclient_adapter

import (
	"crypto/tls"
	"net/url"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Connection cache", func() {
	var (
		adapter *Adapter
		env     *Env
	)

	BeforeEach(func() {
		var err error
		adapter, err = New(WithoutNewRelic())
		Expect(err).ToNot(HaveOccurred())

		env = NewEnv("GET", &url.URL{Scheme: "https", Host: "example.com"})
	})

	It("caches connection", func() {
		clientCert := &tls.Certificate{}

		// before client is created
		env.SSL.ClientCert = clientCert
		env.Request.Boundary = "doesnt-matter"

		client, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(client.SSLConfig().ClientCert).To(BeIdenticalTo(clientCert))
		Expect(client.ConnectTimeout()).To(Equal(60 * time.Second))

		// client2 is cached because no important request options are set
		client2, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(client2).To(BeIdenticalTo(client))
		Expect(client2.SSLConfig().ClientCert).To(BeIdenticalTo(clientCert))
		Expect(client2.ConnectTimeout()).To(Equal(60 * time.Second))

		// important request setting, so client3 is new
		env.Request.Timeout = 5 * time.Second
		client3, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(client3).ToNot(BeIdenticalTo(client2))
		Expect(client3.SSLConfig().ClientCert).To(BeIdenticalTo(clientCert))
		Expect(client3.ConnectTimeout()).To(Equal(5 * time.Second))

		// the first client was not reconfigured
		Expect(client.ConnectTimeout()).To(Equal(60 * time.Second))
	})

	It("returns the same client for separate envs with equal keys", func() {
		other := NewEnv("POST", &url.URL{Scheme: "https", Host: "other.example.com", Path: "/items"})
		other.Body = []byte("payload")
		other.RequestHeaders.Set("X-Test", "1")

		client, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())

		otherClient, err := adapter.Connection(other)
		Expect(err).ToNot(HaveOccurred())

		Expect(otherClient).To(BeIdenticalTo(client))
	})

	It("keeps the client when a non-key field changes", func() {
		client, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())

		env.Request.Boundary = "changed"
		env.Method = "PUT"
		env.URL.Path = "/somewhere/else"

		again, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(again).To(BeIdenticalTo(client))
	})

	It("returns to the original client when a key field is reset", func() {
		client, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())

		env.Request.Timeout = 5 * time.Second
		withTimeout, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(withTimeout).ToNot(BeIdenticalTo(client))

		env.Request.Timeout = 0
		again, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(again).To(BeIdenticalTo(client))
	})

	DescribeTable("builds a new client when a key field changes",
		func(mutate func(*Env)) {
			client, err := adapter.Connection(env)
			Expect(err).ToNot(HaveOccurred())

			mutate(env)

			changed, err := adapter.Connection(env)
			Expect(err).ToNot(HaveOccurred())
			Expect(changed).ToNot(BeIdenticalTo(client))
		},
		Entry("timeout", func(e *Env) { e.Request.Timeout = 5 * time.Second }),
		Entry("open timeout", func(e *Env) { e.Request.OpenTimeout = 1 * time.Second }),
		Entry("write timeout", func(e *Env) { e.Request.WriteTimeout = 10 * time.Second }),
		Entry("read timeout", func(e *Env) { e.Request.ReadTimeout = 5 * time.Second }),
		Entry("client certificate", func(e *Env) { e.SSL.ClientCert = &tls.Certificate{} }),
		Entry("insecure skip verify", func(e *Env) { e.SSL.InsecureSkipVerify = true }),
		Entry("proxy", func(e *Env) { e.Request.Proxy.URI = "http://proxy.example.com:3128" }),
		Entry("bind", func(e *Env) { e.Request.Bind.Host = "127.0.0.1" }),
	)

	It("applies env settings only when the client is built", func() {
		env.Request.OpenTimeout = 2 * time.Second
		client, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(client.ConnectTimeout()).To(Equal(2 * time.Second))
		Expect(client.SendTimeout()).To(Equal(DefaultSendTimeout))
	})

	It("returns an error and caches nothing when the client cannot be built", func() {
		env.SSL.ClientCertFile = "/does/not/exist.pem"

		client, err := adapter.Connection(env)
		Expect(err).To(MatchError(os.ErrNotExist))
		Expect(client).To(BeNil())
		Expect(adapter.clients).To(BeEmpty())
	})

	It("rejects a nil env", func() {
		_, err := adapter.Connection(nil)
		Expect(err).To(MatchError(errNilEnv))
	})

	It("builds a single client for concurrent lookups", func() {
		const workers = 32

		results := make([]*Client, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				client, err := adapter.Connection(env)
				Expect(err).ToNot(HaveOccurred())
				results[i] = client
			}()
		}
		wg.Wait()

		for _, client := range results {
			Expect(client).To(BeIdenticalTo(results[0]))
		}
		Expect(adapter.clients).To(HaveLen(1))
	})

	It("empties the cache on Close", func() {
		client, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())

		adapter.Close()
		Expect(adapter.clients).To(BeEmpty())

		again, err := adapter.Connection(env)
		Expect(err).ToNot(HaveOccurred())
		Expect(again).ToNot(BeIdenticalTo(client))
	})

	Describe("BuildConnection", func() {
		It("always builds a new client", func() {
			first, err := adapter.BuildConnection(env)
			Expect(err).ToNot(HaveOccurred())

			second, err := adapter.BuildConnection(env)
			Expect(err).ToNot(HaveOccurred())

			Expect(second).ToNot(BeIdenticalTo(first))
			Expect(adapter.clients).To(BeEmpty())
		})

		It("allows to provide adapter specific configs", func() {
			configured, err := New(WithoutNewRelic(), WithConfig(Config{
				KeepAliveTimeout: 20 * time.Second,
				SSLTimeout:       25 * time.Second,
			}))
			Expect(err).ToNot(HaveOccurred())

			client, err := configured.BuildConnection(env)
			Expect(err).ToNot(HaveOccurred())

			Expect(client.KeepAliveTimeout()).To(Equal(20 * time.Second))
			Expect(client.SSLConfig().Timeout).To(Equal(25 * time.Second))
			Expect(client.transport.IdleConnTimeout).To(Equal(20 * time.Second))
			Expect(client.transport.TLSHandshakeTimeout).To(Equal(25 * time.Second))
		})

		It("uses client defaults without a config", func() {
			client, err := adapter.BuildConnection(env)
			Expect(err).ToNot(HaveOccurred())

			Expect(client.KeepAliveTimeout()).To(Equal(DefaultKeepAliveTimeout))
			Expect(client.SSLConfig().Timeout).To(Equal(DefaultSSLTimeout))
			Expect(client.SSLConfig().ClientCert).To(BeNil())
		})

		It("rejects an invalid proxy", func() {
			env.Request.Proxy.URI = "proxy-without-scheme"

			_, err := adapter.BuildConnection(env)
			Expect(err).To(MatchError(ContainSubstring("invalid proxy uri")))
		})

		It("rejects an invalid bind address", func() {
			env.Request.Bind = BindOptions{Host: "not a host", Port: 0}

			_, err := adapter.BuildConnection(env)
			Expect(err).To(MatchError(ContainSubstring("not a host")))
		})
	})
})
