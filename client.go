// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mmate

import (
	"context"
	"log/slog"

	"github.com/glimte/mmate-connect/internal/rabbitmq"
)

// Config holds the broker settings a Client is built from
type Config = rabbitmq.Config

// Connection is the broker session returned by Client.Connection
type Connection = rabbitmq.Connection

// Dialer opens broker connections
type Dialer = rabbitmq.Dialer

// ErrInvalidConfiguration is returned by NewClient when user, password or
// hostname is missing.
var ErrInvalidConfiguration = rabbitmq.ErrInvalidConfiguration

// LoadConfig reads broker settings from a YAML file and the environment
func LoadConfig(path string) (Config, error) {
	return rabbitmq.LoadConfig(path)
}

// Client provides the main entry point for mmate-connect
type Client struct {
	manager *rabbitmq.ConnectionManager
}

// NewClient validates cfg and creates a client. No connection is opened
// until Connection is called.
func NewClient(cfg Config, options ...ClientOption) (*Client, error) {
	clientCfg := &clientConfig{
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(clientCfg)
	}

	connOpts := []rabbitmq.ConnectionOption{
		rabbitmq.WithLogger(clientCfg.logger),
	}
	if clientCfg.dialer != nil {
		connOpts = append(connOpts, rabbitmq.WithDialer(clientCfg.dialer))
	}

	manager, err := rabbitmq.NewConnectionManager(cfg, connOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{manager: manager}, nil
}

// URL returns the broker URL, including credentials
func (c *Client) URL() string {
	return c.manager.URL()
}

// Connected reports whether a connection is currently held
func (c *Client) Connected() bool {
	return c.manager.IsConnected()
}

// Connection returns the live connection, opening it on first use
func (c *Client) Connection(ctx context.Context) (Connection, error) {
	return c.manager.GetConnection(ctx)
}

// Close closes the connection if one is open. It never fails; close errors
// from the broker are discarded.
func (c *Client) Close() error {
	c.manager.CloseConnection()
	return nil
}

// Manager exposes the underlying connection manager for health checks
func (c *Client) Manager() *rabbitmq.ConnectionManager {
	return c.manager
}

// clientConfig holds client configuration
type clientConfig struct {
	logger *slog.Logger
	dialer Dialer
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithLogger sets the logger for all components
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithDialer replaces the amqp091-go dialer, mainly for tests
func WithDialer(dialer Dialer) ClientOption {
	return func(cfg *clientConfig) {
		cfg.dialer = dialer
	}
}
