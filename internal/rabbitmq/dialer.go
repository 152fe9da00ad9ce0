package rabbitmq

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultHeartbeat      = 10 * time.Second
	defaultLocale         = "en_US"
	defaultConnectTimeout = 30 * time.Second
)

// Connection is the broker session handed out by the ConnectionManager.
// *amqp.Connection satisfies it.
type Connection interface {
	Channel() (*amqp.Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Dialer opens broker connections
type Dialer interface {
	Dial(ctx context.Context, url string) (Connection, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context, url string) (Connection, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Connection, error) {
	return f(ctx, url)
}

// AMQPDialer dials with amqp091-go. Each connection is tagged with a unique
// connection_name so it can be told apart in the management UI.
type AMQPDialer struct {
	NetDialer *net.Dialer
	Heartbeat time.Duration
	// Timeout bounds the TCP dial and the AMQP handshake when ctx carries
	// no deadline of its own.
	Timeout time.Duration
}

// NewAMQPDialer creates a dialer with the amqp091-go defaults
func NewAMQPDialer() *AMQPDialer {
	return &AMQPDialer{
		NetDialer: &net.Dialer{},
		Heartbeat: defaultHeartbeat,
		Timeout:   defaultConnectTimeout,
	}
}

// Dial opens a connection. Cancelling ctx before the handshake completes
// closes the socket and aborts the dial.
func (d *AMQPDialer) Dial(ctx context.Context, url string) (Connection, error) {
	if _, ok := ctx.Deadline(); !ok && d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	// stop is set once the socket exists; the handshake runs on the same
	// goroutine, so no locking is needed.
	var stop func() bool

	config := amqp.Config{
		Heartbeat: d.Heartbeat,
		Locale:    defaultLocale,
		Properties: amqp.Table{
			"connection_name": "mmate-connect-" + uuid.NewString(),
		},
		Dial: func(network, addr string) (net.Conn, error) {
			conn, err := d.NetDialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// amqp091-go clears the deadline once the handshake completes
			if deadline, ok := ctx.Deadline(); ok {
				if err := conn.SetDeadline(deadline); err != nil {
					_ = conn.Close()
					return nil, err
				}
			}
			stop = context.AfterFunc(ctx, func() { _ = conn.Close() })
			return conn, nil
		},
	}

	conn, err := amqp.DialConfig(url, config)

	cancelled := stop != nil && !stop()
	if cancelled {
		// The socket was torn down under the handshake
		if err == nil {
			_ = conn.Close()
		}
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
