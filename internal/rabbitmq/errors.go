package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrInvalidConfiguration is returned when a required setting is missing
	ErrInvalidConfiguration = errors.New("rabbitmq: invalid configuration")
)

// ConfigError names the configuration field that failed validation
type ConfigError struct {
	Field  string // Configuration field
	Reason string // "missing" or "invalid"
	Value  string // Offending value, empty when missing
	Err    error  // Underlying error
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("rabbitmq configuration error: %s RabbitMQ %s %q", e.Reason, e.Field, e.Value)
	}
	return fmt.Sprintf("rabbitmq configuration error: %s RabbitMQ %s", e.Reason, e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &ConfigError{Field: field, Reason: "missing", Err: ErrInvalidConfiguration}
}

func invalid(field, value string) error {
	return &ConfigError{Field: field, Reason: "invalid", Value: value, Err: ErrInvalidConfiguration}
}

// SanitizeURL removes the password from a connection URL so it can be logged
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
