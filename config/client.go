package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type Client struct {
	Serial         Serial        `yaml:"serial" toml:"serial"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`   // default 30s
	ReadBufferSize int           `yaml:"read_buffer_size" toml:"read_buffer_size"` // bytes per serial read
	Send           SendLimit     `yaml:"send" toml:"send"`
	Metrics        Metrics       `yaml:"metrics" toml:"metrics"`
	Output         string        `yaml:"output" toml:"output"` // text or json
}

type Serial struct {
	Port     string `yaml:"port" toml:"port"` // e.g. /dev/ttyUSB0 or COM3
	BaudRate int    `yaml:"baud_rate" toml:"baud_rate"`
}

// SendLimit paces outbound frames. A zero Rate disables pacing.
type SendLimit struct {
	Rate  float64 `yaml:"rate" toml:"rate"` // frames per second
	Burst int     `yaml:"burst" toml:"burst"`
}

type Metrics struct {
	Listen string `yaml:"listen" toml:"listen"` // host:port, empty disables the endpoint
}

// ValidateListenAddress validates that an address is in [host]:port format.
func ValidateListenAddress(addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format %q: %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d in address %q", port, addr)
	}

	return nil
}

// Validate checks the configuration after defaults have been applied.
func (c *Client) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial port cannot be empty")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout cannot be negative, got %v", c.ConnectTimeout)
	}
	if c.ReadBufferSize < 0 {
		return fmt.Errorf("read buffer size cannot be negative, got %d", c.ReadBufferSize)
	}
	if c.Send.Rate < 0 {
		return fmt.Errorf("send rate cannot be negative, got %v", c.Send.Rate)
	}
	if c.Send.Rate > 0 && c.Send.Burst < 1 {
		return fmt.Errorf("send burst must be at least 1 when a send rate is set, got %d", c.Send.Burst)
	}
	if c.Metrics.Listen != "" {
		if err := ValidateListenAddress(c.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	return nil
}
