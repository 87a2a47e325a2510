package httpclient_adapter

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the file representation of the adapter options.
//
// Example:
//
//	client:
//	  keep_alive_timeout: 20s
//	  ssl_timeout: 25s
//	request_timeout: 30s
//	new_relic: false
//	headers:
//	  user_agent: my-service/1.0
//	  static:
//	    X-API-Key: secret
//	pool:
//	  max_idle_conns_per_host: 10
//	retries:
//	  max_retries: 2
//	  initial_interval: 100ms
type Settings struct {
	Client         Config         `yaml:"client"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	NewRelic       *bool          `yaml:"new_relic"`
	RequestLogging bool           `yaml:"request_logging"`
	Headers        *FileHeaders   `yaml:"headers"`
	Pool           *PoolSettings  `yaml:"pool"`
	Retries        *RetrySettings `yaml:"retries"`
}

// FileHeaders is the file form of HeaderSettings. Context headers need Go context keys and cannot
// be expressed in a file.
type FileHeaders struct {
	UserAgent string            `yaml:"user_agent"`
	Static    map[string]string `yaml:"static"`
}

// LoadSettings reads and parses a YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

func (s *Settings) validate() error {
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if s.Client.KeepAliveTimeout < 0 {
		return fmt.Errorf("client.keep_alive_timeout must not be negative")
	}
	if s.Client.SSLTimeout < 0 {
		return fmt.Errorf("client.ssl_timeout must not be negative")
	}

	if s.Retries != nil {
		if err := validateRetrySettings(*s.Retries, s.RequestTimeout); err != nil {
			return fmt.Errorf("retries: %w", err)
		}
	}

	return nil
}

// Options converts the settings into adapter options.
func (s *Settings) Options() []Option {
	opts := []Option{
		WithConfig(s.Client),
		WithRequestTimeout(s.RequestTimeout),
	}

	if s.NewRelic != nil && !*s.NewRelic {
		opts = append(opts, WithoutNewRelic())
	}

	if s.RequestLogging {
		opts = append(opts, WithRequestLogging())
	}

	if s.Headers != nil {
		opts = append(opts, WithHeaders(HeaderSettings{
			StaticHeaders: s.Headers.Static,
			UserAgent:     s.Headers.UserAgent,
		}))
	}

	if s.Pool != nil {
		opts = append(opts, WithConnectionPool(*s.Pool))
	}

	if s.Retries != nil {
		opts = append(opts, WithRetries(*s.Retries))
	}

	return opts
}
