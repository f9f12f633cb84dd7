package mcpool

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	defaultHost        = "127.0.0.1"
	defaultPort        = 11211
	defaultMinSize     = 1
	defaultMaxSize     = 10
	defaultDialTimeout = 5 * time.Second
	discardLogger      = slog.New(slog.DiscardHandler)
)

type Config struct {
	Host        string        `yaml:"host"`         // 服务端地址
	Port        int           `yaml:"port"`         // 服务端端口
	MinSize     int           `yaml:"min_size"`     // 预热连接数
	MaxSize     int           `yaml:"max_size"`     // 最大空闲连接数
	MaxActive   int           `yaml:"max_active"`   // 最大并发存活数, 0 表示不限制
	DialTimeout time.Duration `yaml:"dial_timeout"` // 建立连接超时

	Dialer Dialer       `yaml:"-"`
	Logger *slog.Logger `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:        defaultHost,
		Port:        defaultPort,
		MinSize:     defaultMinSize,
		MaxSize:     defaultMaxSize,
		DialTimeout: defaultDialTimeout,
		Dialer:      &net.Dialer{},
		Logger:      discardLogger,
	}
}

func LoadConfig(options ...Option) *Config {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}
	return config
}

// ParseConfig decodes a YAML document on top of DefaultConfig. Durations are
// written the way time.ParseDuration reads them ("250ms", "5s").
func ParseConfig(data []byte, options ...Option) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("mcpool: decode config: %w", err)
	}
	for _, option := range options {
		option(config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Host == "" || c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, c.Address())
	}
	if c.MinSize < 0 || c.MaxSize <= 0 || c.MinSize > c.MaxSize {
		return ErrCapacitySetting
	}
	if c.MaxActive != 0 && c.MaxActive < c.MaxSize {
		return ErrCapacitySetting
	}
	if c.DialTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Address returns host:port in the form net.Dial expects.
func (c *Config) Address() string {
	return joinHostPort(c.Host, c.Port)
}
