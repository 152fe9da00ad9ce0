// Package rabbitmq provides the RabbitMQ connection layer for mmate-connect.
//
// This package includes:
//   - Config: broker settings, YAML loading and environment overrides
//   - ConnectionManager: validates a Config, builds the connection URL and
//     lazily opens a single connection
//   - AMQPDialer: the amqp091-go backed Dialer
//
// The manager holds at most one connection. It is opened on the first
// GetConnection call, reused until it is closed, and forgotten as soon as
// either CloseConnection runs or the broker closes the socket. There is no
// automatic reconnection; the next GetConnection call dials again.
package rabbitmq
