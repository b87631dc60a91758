package tools

import (
	"os"
	"strconv"
)

func GetenvDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetenvInt returns the integer value of key, or defaultValue when the
// variable is unset or not a number.
func GetenvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
