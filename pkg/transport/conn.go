// Package transport runs one key-value store connection: a writer goroutine
// draining a bounded command queue and a reader goroutine decoding replies.
package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeBrosOfficial/kvpubsub/pkg/config"
	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/resp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FrameHandler receives every decoded reply in arrival order.
type FrameHandler func(resp.Frame)

// Conn is a pipelined connection. Commands are written in enqueue order
// within a priority class, high priority first.
type Conn struct {
	conn   net.Conn
	cfg    config.ClientConfig
	logger *logging.ColoredLogger

	normal chan resp.Command
	high   chan resp.Command

	closed     chan struct{}
	closeOnce  sync.Once
	errMu      sync.Mutex
	err        error
	writerDone chan struct{}
	pending    atomic.Int64
}

// Dial connects to cfg.Address and starts the writer.
func Dial(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, errors.NewServiceError("kv", "failed to dial "+cfg.Address, err)
	}
	c := New(nc, cfg, logger)
	c.logger.ComponentInfo(logging.ComponentTransport, "Connected",
		zap.String("address", cfg.Address))
	return c, nil
}

// New wraps an established connection and starts the writer.
func New(nc net.Conn, cfg config.ClientConfig, logger *zap.Logger) *Conn {
	c := newConn(nc, cfg, logger)
	go c.writeLoop()
	return c
}

func newConn(nc net.Conn, cfg config.ClientConfig, logger *zap.Logger) *Conn {
	queue := cfg.MaxPendingCommands
	if queue < 1 {
		queue = 1
	}
	return &Conn{
		conn:       nc,
		cfg:        cfg,
		logger:     logging.Named(logger, logging.ComponentTransport),
		normal:     make(chan resp.Command, queue),
		high:       make(chan resp.Command, queue),
		closed:     make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// Enqueue queues cmd for writing. It blocks while the queue for its priority
// class is full and returns errors.ErrClosed once the connection is closed.
// Each class holds up to MaxPendingCommands, so twice that may be queued.
func (c *Conn) Enqueue(cmd resp.Command, highPriority bool) error {
	select {
	case <-c.closed:
		return errors.ErrClosed
	default:
	}

	q := c.normal
	if highPriority {
		q = c.high
	}
	c.pending.Add(1)
	select {
	case q <- cmd:
		return nil
	case <-c.closed:
		c.pending.Add(-1)
		return errors.ErrClosed
	}
}

// Pending returns the number of queued commands the writer has not taken yet.
// A taken command may still sit in the write buffer.
func (c *Conn) Pending() int {
	return int(c.pending.Load())
}

// Run reads replies and passes them to handler until the connection ends or
// ctx is cancelled. It returns nil after Close or cancellation, otherwise
// the error that ended the connection.
func (c *Conn) Run(ctx context.Context, handler FrameHandler) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.readLoop(handler)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			c.Close()
		case <-c.closed:
		}
		return nil
	})

	err := g.Wait()
	<-c.writerDone
	if err != nil {
		return err
	}
	return c.Err()
}

func (c *Conn) readLoop(handler FrameHandler) error {
	dec := resp.NewDecoder(c.conn, c.cfg.ReadBufferSize, c.cfg.MaxFrameSize)
	for {
		frame, err := dec.Decode()
		if err != nil {
			if c.isClosed() {
				return nil
			}
			if errors.IsProtocol(err) {
				c.ReportError("decode reply", err, true)
			} else {
				c.logger.ComponentInfo(logging.ComponentTransport, "Connection ended",
					zap.Int("unparsed_bytes", dec.Buffered()),
					zap.Error(err))
				c.closeWithError(err)
			}
			return err
		}
		handler(frame)
	}
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)

	bw := bufio.NewWriter(c.conn)
	var buf []byte
	for {
		var cmd resp.Command
		select {
		case cmd = <-c.high:
		default:
			select {
			case cmd = <-c.high:
			case cmd = <-c.normal:
			case <-c.closed:
				return
			}
		}

		buf = cmd.Encode(buf[:0])
		c.pending.Add(-1)
		// Write flushes on its own once buf outgrows the buffer.
		c.armWriteDeadline()
		if _, err := bw.Write(buf); err != nil {
			if !c.isClosed() {
				c.ReportError("write command", err, true)
			}
			return
		}

		if len(c.high) > 0 || len(c.normal) > 0 {
			continue
		}
		c.armWriteDeadline()
		if err := bw.Flush(); err != nil {
			if !c.isClosed() {
				c.ReportError("flush commands", err, true)
			}
			return
		}
	}
}

func (c *Conn) armWriteDeadline() {
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
}

// ReportError logs err. A fatal error also closes the connection.
func (c *Conn) ReportError(context string, err error, fatal bool) {
	fields := []zap.Field{
		zap.String("context", context),
		zap.String("code", errors.GetErrorCode(err)),
		zap.Error(err),
	}
	if !fatal {
		c.logger.ComponentWarn(logging.ComponentTransport, "Non-fatal error", fields...)
		return
	}
	c.logger.ComponentError(logging.ComponentTransport, "Fatal connection error", fields...)
	c.closeWithError(err)
}

// Close closes the connection. Commands still queued are discarded.
func (c *Conn) Close() error {
	return c.closeWithError(nil)
}

func (c *Conn) closeWithError(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// Err returns the error that closed the connection, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
