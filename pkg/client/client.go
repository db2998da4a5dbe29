package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/config"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
	"github.com/DeBrosOfficial/kvpubsub/pkg/transport"
)

// Client pairs a dedicated subscriber connection with a pooled go-redis
// connection for PUBLISH. A connection in subscribe mode rejects ordinary
// commands, so the two never share a socket.
type Client struct {
	*pubsub.Subscriber

	cfg    config.ClientConfig
	conn   *transport.Conn
	rdb    *redis.Client
	logger *logging.ColoredLogger

	cancel context.CancelFunc
	done   chan struct{}
	runErr error

	startTime time.Time
	closeOnce sync.Once
}

var _ PubSubClient = (*Client)(nil)

// Connect dials the server and starts routing inbound frames. The returned
// client must be closed by the caller.
func Connect(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, NewClientError("connect", "address is required", ErrInvalidConfig)
	}

	l := newClientLogger(logger)

	conn, err := transport.Dial(ctx, cfg, l.Logger)
	if err != nil {
		return nil, NewClientError("connect", "failed to dial subscriber connection", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		Subscriber: pubsub.NewSubscriber(conn, conn, l.Logger),
		cfg:        cfg,
		conn:       conn,
		logger:     l,
		cancel:     cancel,
		done:       make(chan struct{}),
		startTime:  time.Now(),
	}
	c.rdb = redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		ClientName:      cfg.ClientName,
		DialTimeout:     cfg.DialTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		Protocol:        2,
		DisableIdentity: true,
	})

	go func() {
		defer close(c.done)
		c.runErr = conn.Run(runCtx, c.Subscriber.Route)
		if c.runErr != nil {
			l.ComponentWarn(logging.ComponentClient, "Subscriber connection ended", zap.Error(c.runErr))
		}
	}()

	l.ComponentInfo(logging.ComponentClient, "Connected",
		zap.String("address", cfg.Address),
		zap.Stringer("remote", conn.RemoteAddr()),
	)
	return c, nil
}

// Publish sends payload to channel over the publish connection and returns
// the number of subscribers the server delivered it to.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	if channel == "" {
		return 0, NewClientError("publish", "channel is required", ErrInvalidConfig)
	}
	if c.closed() {
		return 0, NewClientError("publish", "client is closed", ErrNotConnected)
	}
	n, err := c.rdb.Publish(ctx, channel, payload).Result()
	if err != nil {
		return 0, NewClientError("publish", "failed to publish to "+channel, err)
	}
	return n, nil
}

// Health reports the state of both connections.
func (c *Client) Health(ctx context.Context) *HealthStatus {
	start := time.Now()
	checks := map[string]string{
		"subscriber": "ok",
		"publisher":  "ok",
	}
	status := "healthy"

	if c.closed() {
		checks["subscriber"] = "disconnected"
		status = "unhealthy"
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		checks["publisher"] = err.Error()
		if status == "healthy" {
			status = "degraded"
		}
	}

	return &HealthStatus{
		Status:        status,
		Checks:        checks,
		Subscriptions: c.SubscriptionCount(),
		Pending:       c.conn.Pending(),
		Uptime:        time.Since(c.startTime),
		LastUpdated:   time.Now(),
		ResponseTime:  time.Since(start),
	}
}

// Done is closed once the subscriber connection has stopped reading.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the subscriber connection ends and returns the error
// that ended it, or nil after Close.
func (c *Client) Wait() error {
	<-c.done
	return c.runErr
}

// Close shuts both connections down and waits for the read loop to exit.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		connErr := c.conn.Close()
		<-c.done
		err = errors.Join(connErr, c.rdb.Close())
		c.logger.ComponentInfo(logging.ComponentClient, "Closed",
			zap.Duration("uptime", time.Since(c.startTime)),
		)
	})
	return err
}

func (c *Client) closed() bool {
	select {
	case <-c.conn.Done():
		return true
	default:
		return false
	}
}
