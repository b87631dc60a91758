package config

const (
	EnvPrefix = "IMPROV_"
)

// Output formats for decoded messages
const (
	OutputText = "text"
	OutputJSON = "json"
)
