package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Property 1: Zero-value fields receive correct defaults
func TestZeroValueDefaultsApplication_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.Float64Range(0, 100).Draw(t, "rate")
		client := &Client{Send: SendLimit{Rate: rate}}

		client.ApplyDefaults()

		if client.Serial.BaudRate != DefaultBaudRate {
			t.Fatalf("expected BaudRate=%d, got %d", DefaultBaudRate, client.Serial.BaudRate)
		}
		if client.ConnectTimeout != DefaultConnectTimeout {
			t.Fatalf("expected ConnectTimeout=%v, got %v", DefaultConnectTimeout, client.ConnectTimeout)
		}
		if client.ReadBufferSize != DefaultReadBufferSize {
			t.Fatalf("expected ReadBufferSize=%d, got %d", DefaultReadBufferSize, client.ReadBufferSize)
		}
		if client.Output != DefaultOutput {
			t.Fatalf("expected Output=%q, got %q", DefaultOutput, client.Output)
		}
		if rate > 0 && client.Send.Burst != DefaultSendBurst {
			t.Fatalf("expected Burst=%d, got %d", DefaultSendBurst, client.Send.Burst)
		}
		if rate == 0 && client.Send.Burst != 0 {
			t.Fatalf("expected Burst to stay 0 without a rate, got %d", client.Send.Burst)
		}
	})
}

// Property 2: Explicit values are never overwritten by defaults
func TestExplicitValuesPreserved_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		baud := rapid.SampledFrom([]int{9600, 19200, 57600, 230400, 921600}).Draw(t, "baud")
		timeout := time.Duration(rapid.IntRange(1, 120).Draw(t, "timeout")) * time.Second
		bufSize := rapid.IntRange(1, 4096).Draw(t, "bufSize")
		burst := rapid.IntRange(1, 16).Draw(t, "burst")

		client := &Client{
			Serial:         Serial{BaudRate: baud},
			ConnectTimeout: timeout,
			ReadBufferSize: bufSize,
			Send:           SendLimit{Rate: 5, Burst: burst},
			Output:         OutputJSON,
		}
		client.ApplyDefaults()

		if client.Serial.BaudRate != baud || client.ConnectTimeout != timeout ||
			client.ReadBufferSize != bufSize || client.Send.Burst != burst || client.Output != OutputJSON {
			t.Fatalf("explicit values changed: %+v", client)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Client {
		c := &Client{Serial: Serial{Port: "/dev/ttyUSB0"}}
		c.ApplyDefaults()
		return c
	}

	assert.NoError(t, valid().Validate())

	cases := map[string]func(c *Client){
		"empty port":       func(c *Client) { c.Serial.Port = "" },
		"negative baud":    func(c *Client) { c.Serial.BaudRate = -1 },
		"negative timeout": func(c *Client) { c.ConnectTimeout = -time.Second },
		"negative rate":    func(c *Client) { c.Send.Rate = -1 },
		"rate no burst":    func(c *Client) { c.Send.Rate = 1; c.Send.Burst = 0 },
		"bad metrics addr": func(c *Client) { c.Metrics.Listen = "localhost" },
		"bad output":       func(c *Client) { c.Output = "xml" },
	}
	for name, mutate := range cases {
		c := valid()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestValidateListenAddress(t *testing.T) {
	assert.NoError(t, ValidateListenAddress(":9100"))
	assert.NoError(t, ValidateListenAddress("127.0.0.1:0"))
	assert.Error(t, ValidateListenAddress("9100"))
	assert.Error(t, ValidateListenAddress("host:http"))
	assert.Error(t, ValidateListenAddress("host:70000"))
}
