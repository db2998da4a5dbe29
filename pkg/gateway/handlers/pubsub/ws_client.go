package pubsub

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
)

const pingInterval = 30 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin is accepted; the gateway is meant to sit behind a proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient wraps a WebSocket connection. Only the writer loop writes data
// frames; close may be called from any goroutine.
type wsClient struct {
	conn         *websocket.Conn
	key          string
	writeTimeout time.Duration
	logger       *logging.ColoredLogger
	closeOnce    sync.Once
}

func newWSClient(conn *websocket.Conn, key string, writeTimeout time.Duration, logger *logging.ColoredLogger) *wsClient {
	return &wsClient{
		conn:         conn,
		key:          key,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// writeEnvelope sends one message to the client as JSON.
func (c *wsClient) writeEnvelope(env Envelope) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteJSON(env); err != nil {
		c.logger.ComponentWarn(logging.ComponentGateway, "pubsub ws: failed to write to websocket",
			zap.String("key", c.key),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *wsClient) writeControl(messageType int, data []byte) error {
	return c.conn.WriteControl(messageType, data, time.Now().Add(5*time.Second))
}

func (c *wsClient) readMessage() (messageType int, data []byte, err error) {
	return c.conn.ReadMessage()
}

// close sends a close frame with reason and drops the connection.
func (c *wsClient) close(code int, reason string) {
	c.closeOnce.Do(func() {
		_ = c.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		_ = c.conn.Close()
	})
}
