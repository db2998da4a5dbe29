// Package broker is an in-memory, Redis-compatible pub/sub server used for
// local development and end-to-end tests of the subscriber.
package broker

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/DeBrosOfficial/kvpubsub/pkg/config"
	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/tidwall/redcon"
	"go.uber.org/zap"
)

// Broker serves SUBSCRIBE, PSUBSCRIBE, UNSUBSCRIBE, PUNSUBSCRIBE, PUBLISH,
// PING, ECHO and QUIT. HELLO is rejected so clients fall back to RESP2.
type Broker struct {
	cfg    config.BrokerConfig
	logger *logging.ColoredLogger
	ps     redcon.PubSub

	mu    sync.Mutex
	srv   *redcon.Server
	ln    net.Listener
	conns map[redcon.Conn]net.Conn

	published atomic.Int64
}

// Stats is a point-in-time view of broker activity.
type Stats struct {
	Connections int   `json:"connections"`
	Published   int64 `json:"published"`
}

// New creates a broker. Call Serve or ListenAndServe to start it.
func New(cfg config.BrokerConfig, logger *zap.Logger) *Broker {
	return &Broker{
		cfg:    cfg,
		logger: logging.Named(logger, logging.ComponentBroker),
		conns:  make(map[redcon.Conn]net.Conn),
	}
}

// Serve accepts connections on ln until Close is called.
func (b *Broker) Serve(ln net.Listener) error {
	srv := redcon.NewServer(ln.Addr().String(), b.handle, b.accept, b.closed)
	if b.cfg.IdleTimeout > 0 {
		srv.SetIdleClose(b.cfg.IdleTimeout)
	}
	b.mu.Lock()
	b.srv = srv
	b.ln = ln
	b.mu.Unlock()

	b.logger.ComponentInfo(logging.ComponentBroker, "Broker listening",
		zap.String("addr", ln.Addr().String()))
	return srv.Serve(ln)
}

// ListenAndServe listens on the configured address and serves.
func (b *Broker) ListenAndServe() error {
	ln, err := net.Listen("tcp", b.cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", b.cfg.ListenAddr)
	}
	return b.Serve(ln)
}

// Publish delivers message to subscribers of channel and returns the
// number of deliveries.
func (b *Broker) Publish(channel, message string) int {
	b.published.Add(1)
	return b.ps.Publish(channel, message)
}

// Stats returns current counters.
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Connections: len(b.conns), Published: b.published.Load()}
}

// Addr returns the listen address, or nil before Serve.
func (b *Broker) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ln == nil {
		return nil
	}
	return b.ln.Addr()
}

// Close stops the listener and disconnects every client, including those
// in subscribed mode.
func (b *Broker) Close() error {
	b.mu.Lock()
	srv, ln := b.srv, b.ln
	conns := make([]net.Conn, 0, len(b.conns))
	for _, nc := range b.conns {
		conns = append(conns, nc)
	}
	b.conns = make(map[redcon.Conn]net.Conn)
	b.mu.Unlock()

	if srv == nil {
		return errors.ErrNotServing
	}
	// srv.Close fails until redcon has registered the listener.
	_ = srv.Close()
	_ = ln.Close()
	for _, nc := range conns {
		_ = nc.Close()
	}
	b.logger.ComponentInfo(logging.ComponentBroker, "Broker closed")
	return nil
}

func (b *Broker) accept(conn redcon.Conn) bool {
	b.mu.Lock()
	b.conns[conn] = conn.NetConn()
	b.mu.Unlock()
	b.logger.ComponentDebug(logging.ComponentBroker, "Client connected",
		zap.String("remote", conn.RemoteAddr()))
	return true
}

func (b *Broker) closed(conn redcon.Conn, err error) {
	// Subscribed connections are detached from the server loop but stay
	// open; keep tracking them so Close can reach them.
	if err != nil && err.Error() == "detached" {
		return
	}
	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	b.logger.ComponentDebug(logging.ComponentBroker, "Client disconnected",
		zap.String("remote", conn.RemoteAddr()), zap.Error(err))
}

func (b *Broker) handle(conn redcon.Conn, cmd redcon.Command) {
	name := strings.ToLower(string(cmd.Args[0]))
	switch name {
	case "ping":
		switch len(cmd.Args) {
		case 1:
			conn.WriteString("PONG")
		case 2:
			conn.WriteBulk(cmd.Args[1])
		default:
			wrongArgs(conn, cmd)
		}

	case "echo":
		if len(cmd.Args) != 2 {
			wrongArgs(conn, cmd)
			return
		}
		conn.WriteBulk(cmd.Args[1])

	case "quit":
		conn.WriteString("OK")
		conn.Close()

	case "publish":
		if len(cmd.Args) != 3 {
			wrongArgs(conn, cmd)
			return
		}
		n := b.Publish(string(cmd.Args[1]), string(cmd.Args[2]))
		conn.WriteInt(n)

	case "subscribe", "psubscribe":
		if len(cmd.Args) < 2 {
			wrongArgs(conn, cmd)
			return
		}
		for _, arg := range cmd.Args[1:] {
			if name == "psubscribe" {
				b.ps.Psubscribe(conn, string(arg))
			} else {
				b.ps.Subscribe(conn, string(arg))
			}
		}

	case "unsubscribe", "punsubscribe":
		// The connection has no subscriptions yet, otherwise it would be
		// detached and served by the pub/sub runner. Acknowledge each key
		// with a zero count like Redis does.
		if len(cmd.Args) == 1 {
			conn.WriteArray(3)
			conn.WriteBulkString(name)
			conn.WriteNull()
			conn.WriteInt(0)
			return
		}
		for _, arg := range cmd.Args[1:] {
			conn.WriteArray(3)
			conn.WriteBulkString(name)
			conn.WriteBulk(arg)
			conn.WriteInt(0)
		}

	case "hello":
		conn.WriteError("ERR unknown command 'HELLO'")

	case "client":
		conn.WriteString("OK")

	default:
		conn.WriteError(fmt.Sprintf("ERR unknown command '%s'", cmd.Args[0]))
	}
}

func wrongArgs(conn redcon.Conn, cmd redcon.Command) {
	conn.WriteError(fmt.Sprintf("ERR wrong number of arguments for '%s' command",
		strings.ToLower(string(cmd.Args[0]))))
}
