package rabbitmq

import (
	"context"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectionManager lazily opens and owns a single broker connection
type ConnectionManager struct {
	credentials  string
	hostAndPort  string
	protocol     string
	vhostSegment string

	dialer Dialer
	logger *slog.Logger

	// dialMu serializes dials; mu guards the held connection and is never
	// held across network I/O.
	dialMu      sync.Mutex
	mu          sync.Mutex
	conn        Connection
	isConnected bool
}

// ConnectionOption configures the ConnectionManager
type ConnectionOption func(*ConnectionManager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithDialer replaces the amqp091-go dialer
func WithDialer(dialer Dialer) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.dialer = dialer
	}
}

// NewConnectionManager validates the configuration and derives the
// connection URL. It does not touch the network.
func NewConnectionManager(cfg Config, options ...ConnectionOption) (*ConnectionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cm := &ConnectionManager{
		credentials:  credentials(cfg.User, cfg.Password),
		hostAndPort:  hostAndPort(cfg.Hostname, cfg.Port),
		protocol:     protocolOrDefault(cfg.Protocol),
		vhostSegment: vhostSegment(cfg.Vhost),
		dialer:       NewAMQPDialer(),
		logger:       slog.Default(),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm, nil
}

// URL returns the connection URL
func (cm *ConnectionManager) URL() string {
	return cm.protocol + cm.credentials + cm.hostAndPort + cm.vhostSegment
}

// IsConnected returns the connection status
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.isConnected
}

// GetConnection returns the current connection, opening one if none is held.
// Concurrent callers share a single dial. Dial errors are returned as-is.
func (cm *ConnectionManager) GetConnection(ctx context.Context) (Connection, error) {
	if conn := cm.current(); conn != nil {
		return conn, nil
	}

	cm.dialMu.Lock()
	defer cm.dialMu.Unlock()

	// Another caller may have finished dialing while we waited
	if conn := cm.current(); conn != nil {
		return conn, nil
	}

	conn, err := cm.dialer.Dial(ctx, cm.URL())
	if err != nil {
		return nil, err
	}

	// Buffered so the broker client never blocks delivering the close error
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	cm.mu.Lock()
	cm.conn = conn
	cm.isConnected = true
	cm.mu.Unlock()

	go cm.watch(conn, notifyClose)

	cm.logger.Info("connected to RabbitMQ", "url", SanitizeURL(cm.URL()))

	return conn, nil
}

func (cm *ConnectionManager) current() Connection {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.conn
}

// CloseConnection closes the held connection, if any. Close errors are
// discarded; the manager always ends up disconnected.
func (cm *ConnectionManager) CloseConnection() {
	cm.mu.Lock()
	conn := cm.conn
	cm.conn = nil
	cm.isConnected = false
	cm.mu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.Close()

	cm.logger.Info("connection to RabbitMQ closed")
}

// watch clears the held connection when the broker side closes it
func (cm *ConnectionManager) watch(conn Connection, notifyClose <-chan *amqp.Error) {
	err := <-notifyClose

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// An explicit close or a newer connection got here first
	if cm.conn != conn {
		return
	}

	cm.conn = nil
	cm.isConnected = false

	if err != nil {
		cm.logger.Error("connection closed by broker", "error", err)
	} else {
		cm.logger.Info("connection closed by broker")
	}
}
