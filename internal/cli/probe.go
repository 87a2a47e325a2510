package cli

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	adapter "github.com/JSainsburyPLC/danielchurm/go-httpclient-adapter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	method       string
	data         string
	headers      []string
	include      bool
	configPath   string
	repeat       int
	verbose      bool
	timeout      time.Duration
	openTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	insecure     bool
	caFile       string
	certFile     string
	keyFile      string
	proxy        string
}

func newProbeCommand() *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe [url]",
		Short: "Send a request and print the response",
		Long: `Send a request through the adapter and print the status line, optional headers and body.

With --repeat the same request is sent several times and each response reports whether the
cached client was reused.

Example:
  adapter-probe probe https://example.com --include
  adapter-probe probe https://api.example.com/items -X POST -d '{"a":1}' -H 'Content-Type: application/json'
  adapter-probe probe https://example.com --open-timeout 1s --read-timeout 5s --repeat 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "method", "X", "GET", "HTTP method")
	flags.StringVarP(&opts.data, "data", "d", "", "Request body")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	flags.BoolVarP(&opts.include, "include", "i", false, "Print response headers")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to adapter settings file")
	flags.IntVarP(&opts.repeat, "repeat", "n", 1, "Number of times to send the request")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Blanket timeout for connect, send and receive")
	flags.DurationVar(&opts.openTimeout, "open-timeout", 0, "Connect timeout")
	flags.DurationVar(&opts.readTimeout, "read-timeout", 0, "Receive timeout")
	flags.DurationVar(&opts.writeTimeout, "write-timeout", 0, "Send timeout")
	flags.BoolVarP(&opts.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	flags.StringVar(&opts.caFile, "cacert", "", "CA certificate file")
	flags.StringVar(&opts.certFile, "cert", "", "Client certificate file")
	flags.StringVar(&opts.keyFile, "key", "", "Client key file")
	flags.StringVar(&opts.proxy, "proxy", "", "Proxy URL")

	return cmd
}

func runProbe(cmd *cobra.Command, opts *probeOptions, rawURL string) error {
	if opts.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if opts.repeat < 1 {
		return fmt.Errorf("repeat must be at least 1, got: %d", opts.repeat)
	}

	a, err := newAdapter(opts.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	env, err := buildEnv(opts, rawURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var previous *adapter.Client

	for i := range opts.repeat {
		client, err := a.Connection(env)
		if err != nil {
			return fmt.Errorf("failed to build client: %w", err)
		}

		resp, err := a.Call(cmd.Context(), env)
		if err != nil {
			return fmt.Errorf("request %d failed: %w", i+1, err)
		}

		state := "new"
		if client == previous {
			state = "reused"
		}
		previous = client

		fmt.Fprintf(cmd.ErrOrStderr(), "client: %s (connect=%v send=%v receive=%v)\n",
			state, client.ConnectTimeout(), client.SendTimeout(), client.ReceiveTimeout())

		printResponse(out, resp, opts.include)
	}

	return nil
}

func newAdapter(configPath string) (*adapter.Adapter, error) {
	opts := []adapter.Option{adapter.WithoutNewRelic()}

	if configPath != "" {
		settings, err := adapter.LoadSettings(configPath)
		if err != nil {
			return nil, err
		}
		opts = append(settings.Options(), adapter.WithoutNewRelic())
	}

	return adapter.New(opts...)
}

func buildEnv(opts *probeOptions, rawURL string) (*adapter.Env, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q (only http and https are allowed)", target.Scheme)
	}

	env := adapter.NewEnv(opts.method, target)
	env.Body = []byte(opts.data)

	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		env.RequestHeaders.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	env.Request.Timeout = opts.timeout
	env.Request.OpenTimeout = opts.openTimeout
	env.Request.ReadTimeout = opts.readTimeout
	env.Request.WriteTimeout = opts.writeTimeout
	env.Request.Proxy.URI = opts.proxy

	env.SSL.InsecureSkipVerify = opts.insecure
	env.SSL.CAFile = opts.caFile
	env.SSL.ClientCertFile = opts.certFile
	env.SSL.ClientKeyFile = opts.keyFile

	return env, nil
}

func printResponse(w io.Writer, resp *adapter.Response, include bool) {
	fmt.Fprintf(w, "HTTP %d %s\n", resp.Status, resp.ReasonPhrase)

	if include {
		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, strings.Join(resp.Headers[name], ", "))
		}
		fmt.Fprintln(w)
	}

	if len(resp.Body) > 0 {
		fmt.Fprintln(w, string(resp.Body))
	}
}
