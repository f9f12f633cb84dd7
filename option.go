package mcpool

import (
	"log/slog"
	"time"
)

type Option func(config *Config)

func WithAddress(host string, port int) Option {
	return func(config *Config) {
		config.Host = host
		config.Port = port
	}
}

func WithMinSize(minSize int) Option {
	return func(config *Config) {
		config.MinSize = minSize
	}
}

func WithMaxSize(maxSize int) Option {
	return func(config *Config) {
		config.MaxSize = maxSize
	}
}

// WithMaxActive turns the soft bound into a hard one: Acquire waits while
// maxActive connections are checked out.
func WithMaxActive(maxActive int) Option {
	return func(config *Config) {
		config.MaxActive = maxActive
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.DialTimeout = timeout
	}
}

func WithDialer(dialer Dialer) Option {
	return func(config *Config) {
		config.Dialer = dialer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(config *Config) {
		if logger != nil {
			config.Logger = logger
		}
	}
}
