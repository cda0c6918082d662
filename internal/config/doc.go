// Package config loads and validates the chatter-relay YAML configuration.
// Values in ${VAR_NAME} form are expanded from the environment before
// parsing, and duration fields accept Go duration strings ("50ms", "2m").
package config
