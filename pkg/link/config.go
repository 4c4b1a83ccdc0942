package link

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/handlink/pkg/link/device"
)

// Config defines the link parameters. Every value has a default and can be
// overridden by flags or a YAML file.
type Config struct {
	BaudRate     int           `yaml:"baud_rate"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// ReadTimeout bounds a single read so the monitor can never wedge.
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
	// Signatures overrides the platform signatures keyed by GOOS.
	Signatures map[string]device.Signature `yaml:"signatures"`
	Breaker    BreakerConfig               `yaml:"breaker"`
}

// BreakerConfig configures suspension of connects after repeated failures.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failed connect cycles
	// before connecting is suspended.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long connecting stays suspended.
	Timeout time.Duration `yaml:"timeout"`
}

// MaxConnectBackoff caps the delay between connect attempts.
const MaxConnectBackoff = time.Second

var defaultConfig = Config{
	BaudRate:        9600,
	PollInterval:    500 * time.Millisecond,
	ReadTimeout:     100 * time.Millisecond,
	ConnectAttempts: 3,
	ConnectBackoff:  100 * time.Millisecond,
	Breaker: BreakerConfig{
		MaxFailures: 5,
		Timeout:     5 * time.Second,
	},
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Link health polling interval.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout.")
	flag.IntVar(&defaultConfig.ConnectAttempts, "connect-attempts", defaultConfig.ConnectAttempts, "Connect attempts per cycle.")
	flag.Var(signatureFlag{}, "signature", "Peripheral signature FIELD:SUBSTRING for this platform, FIELD is id or description.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Signatures = make(map[string]device.Signature, len(defaultConfig.Signatures))
	for k, v := range defaultConfig.Signatures {
		conf.Signatures[k] = v
	}
	return &conf
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	conf := NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err = yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err = conf.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// Validate checks configuration correctness.
func (c *Config) Validate() error {
	switch {
	case c.BaudRate <= 0:
		return fmt.Errorf("baud_rate must be > 0")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be > 0")
	case c.ReadTimeout <= 0:
		return fmt.Errorf("read_timeout must be > 0")
	case c.ConnectAttempts <= 0:
		return fmt.Errorf("connect_attempts must be > 0")
	case c.ConnectBackoff < 0:
		return fmt.Errorf("connect_backoff must not be negative")
	case c.Breaker.MaxFailures == 0:
		return fmt.Errorf("breaker.max_failures must be > 0")
	case c.Breaker.Timeout <= 0:
		return fmt.Errorf("breaker.timeout must be > 0")
	}
	for goos, sig := range c.Signatures {
		if !sig.IsValid() {
			return fmt.Errorf("signatures.%s: field must be id or description with a substring", goos)
		}
	}
	return nil
}

// NewPortLister creates a PortLister for the serial ports of the running OS.
func (c *Config) NewPortLister() (*device.PortLister, error) {
	return device.NewPortLister(runtime.GOOS, device.SystemEnumerator{}, c.Signatures)
}

// NewLink creates a Link using the serial ports of the running OS.
func (c *Config) NewLink() (*Link, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	lister, err := c.NewPortLister()
	if err != nil {
		return nil, err
	}
	return New(*c, lister, device.SerialOpener{}), nil
}

type signatureFlag struct{}

func (signatureFlag) String() string {
	if sig, ok := defaultConfig.Signatures[runtime.GOOS]; ok {
		return string(sig.Field) + ":" + sig.Substring
	}
	return ""
}

func (signatureFlag) Set(val string) error {
	field, substr, ok := strings.Cut(val, ":")
	sig := device.Signature{Field: device.Field(field), Substring: substr}
	if !ok || !sig.IsValid() {
		return errors.New("expect id:SUBSTRING or description:SUBSTRING")
	}
	if defaultConfig.Signatures == nil {
		defaultConfig.Signatures = make(map[string]device.Signature)
	}
	defaultConfig.Signatures[runtime.GOOS] = sig
	return nil
}
