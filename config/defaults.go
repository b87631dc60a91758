package config

import (
	"time"
)

// Default values
const (
	// DefaultBaudRate is the serial speed used by ESPHome and most Improv firmware
	DefaultBaudRate = 115200

	// DefaultConnectTimeout bounds opening the serial port
	DefaultConnectTimeout = 30 * time.Second

	// DefaultReadBufferSize is the size of a single serial read, one full frame
	DefaultReadBufferSize = 265

	// DefaultSendBurst is the token bucket size when a send rate is configured
	DefaultSendBurst = 1

	// DefaultOutput is the message output format of the CLI
	DefaultOutput = OutputText
)

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Client) ApplyDefaults() {
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = DefaultBaudRate
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Send.Rate > 0 && c.Send.Burst == 0 {
		c.Send.Burst = DefaultSendBurst
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}
