package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetenvDefault(t *testing.T) {
	t.Setenv("IMPROV_TEST_PORT", "/dev/ttyUSB3")
	assert.Equal(t, "/dev/ttyUSB3", GetenvDefault("IMPROV_TEST_PORT", "x"))
	assert.Equal(t, "x", GetenvDefault("IMPROV_TEST_UNSET", "x"))
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("IMPROV_TEST_BAUD", "9600")
	t.Setenv("IMPROV_TEST_BAD", "fast")
	assert.Equal(t, 9600, GetenvInt("IMPROV_TEST_BAUD", 1))
	assert.Equal(t, 1, GetenvInt("IMPROV_TEST_BAD", 1))
	assert.Equal(t, 1, GetenvInt("IMPROV_TEST_UNSET", 1))
}
