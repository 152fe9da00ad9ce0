package rabbitmq

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultProtocol is used when no protocol is configured
const DefaultProtocol = "amqp://"

// Config describes how to reach the broker
type Config struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`     // 0 leaves the port out of the URL; negative is invalid
	Protocol string `yaml:"protocol"` // e.g. "amqps://"
	Vhost    string `yaml:"vhost"`
}

// Validate reports the first missing required field, checked in the order
// user, password, hostname, followed by a negative port.
func (c Config) Validate() error {
	if c.User == "" {
		return missing("user")
	}
	if c.Password == "" {
		return missing("password")
	}
	if c.Hostname == "" {
		return missing("hostname")
	}
	if c.Port < 0 {
		return invalid("port", strconv.Itoa(c.Port))
	}
	return nil
}

// LoadConfig reads a YAML file, applies MMATE_RABBITMQ_* environment
// overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// ReadConfig is LoadConfig without validation, for callers that fill in
// missing fields from elsewhere before building a ConnectionManager.
func ReadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MMATE_RABBITMQ_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("MMATE_RABBITMQ_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("MMATE_RABBITMQ_HOSTNAME"); v != "" {
		cfg.Hostname = v
	}
	if v := os.Getenv("MMATE_RABBITMQ_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MMATE_RABBITMQ_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("MMATE_RABBITMQ_PROTOCOL"); v != "" {
		cfg.Protocol = v
	}
	if v := os.Getenv("MMATE_RABBITMQ_VHOST"); v != "" {
		cfg.Vhost = v
	}
	return nil
}

// credentials returns the escaped "user:password@" prefix
func credentials(user, password string) string {
	return url.UserPassword(user, password).String() + "@"
}

// hostAndPort brackets IPv6 literals whether or not a port follows
func hostAndPort(hostname string, port int) string {
	if strings.Contains(hostname, ":") && !strings.HasPrefix(hostname, "[") {
		hostname = "[" + hostname + "]"
	}
	if port == 0 {
		return hostname
	}
	return hostname + ":" + strconv.Itoa(port)
}

func protocolOrDefault(protocol string) string {
	if protocol == "" {
		return DefaultProtocol
	}
	return protocol
}

// vhostSegment maps the default vhost ("" or "/") to no path at all
func vhostSegment(vhost string) string {
	if vhost == "" || vhost == "/" {
		return ""
	}
	return "/" + url.PathEscape(vhost)
}
