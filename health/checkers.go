package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/glimte/mmate-connect/internal/rabbitmq"
)

const defaultCheckTimeout = 10 * time.Second

// RabbitMQChecker checks RabbitMQ connection health. A check opens the
// connection if the manager does not hold one yet, and drops a held
// connection that is already closing so the next check dials fresh.
type RabbitMQChecker struct {
	connManager *rabbitmq.ConnectionManager
	logger      *slog.Logger
	timeout     time.Duration
}

// CheckerOption configures the RabbitMQChecker
type CheckerOption func(*RabbitMQChecker)

// WithCheckLogger sets the logger
func WithCheckLogger(logger *slog.Logger) CheckerOption {
	return func(c *RabbitMQChecker) {
		c.logger = logger
	}
}

// WithCheckTimeout bounds how long a check may wait for the broker
func WithCheckTimeout(timeout time.Duration) CheckerOption {
	return func(c *RabbitMQChecker) {
		c.timeout = timeout
	}
}

// NewRabbitMQChecker creates a new RabbitMQ health checker
func NewRabbitMQChecker(connManager *rabbitmq.ConnectionManager, options ...CheckerOption) *RabbitMQChecker {
	c := &RabbitMQChecker{
		connManager: connManager,
		logger:      slog.Default(),
		timeout:     defaultCheckTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Check opens or reuses the connection and reports its state
func (c *RabbitMQChecker) Check(ctx context.Context) (result CheckResult) {
	start := time.Now()
	result = CheckResult{
		URL:          rabbitmq.SanitizeURL(c.connManager.URL()),
		WasConnected: c.connManager.IsConnected(),
	}
	defer func() {
		result.Connected = c.connManager.IsConnected()
		result.Duration = time.Since(start)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.connManager.GetConnection(ctx)
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		c.logger.Warn("rabbitmq health check timed out", "timeout", c.timeout)
		result.Status = StatusUnhealthy
		result.Message = "Timed out opening connection"
		result.Error = err.Error()
	case err != nil:
		c.logger.Warn("rabbitmq health check failed", "error", err)
		result.Status = StatusUnhealthy
		result.Message = "Failed to get connection"
		result.Error = err.Error()
	case conn.IsClosed():
		c.connManager.CloseConnection()
		result.Status = StatusDegraded
		result.Message = "Held connection was closing and has been dropped"
	default:
		result.Status = StatusHealthy
		result.Message = "Connection is healthy"
	}

	return result
}
