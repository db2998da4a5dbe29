package pubsub

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/httputil"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
)

// WebsocketHandler handles GET /v1/pubsub/ws?channel=name or
// ?pattern=glob. It upgrades to WS and forwards every message for the key
// as an Envelope. Text or binary frames sent by a channel client are
// published to that channel.
func (p *PubSubHandlers) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	if p.client == nil {
		httputil.WriteErr(w, r, errNoClient)
		return
	}

	channel := r.URL.Query().Get("channel")
	pattern := r.URL.Query().Get("pattern")
	if (channel == "") == (pattern == "") {
		httputil.WriteErr(w, r, errors.NewValidationError("query", "exactly one of 'channel' or 'pattern' is required", nil))
		return
	}
	key, isPattern := channel, false
	if pattern != "" {
		key, isPattern = pattern, true
	}
	if err := pubsub.ValidateKey(key, isPattern); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.ComponentWarn(logging.ComponentGateway, "pubsub ws: upgrade failed", zap.Error(err))
		return
	}

	sub := &localSubscriber{
		id:      uuid.New().String(),
		key:     key,
		pattern: isPattern,
		msgChan: make(chan Envelope, p.cfg.ClientBuffer),
		ws:      newWSClient(conn, key, p.cfg.WriteTimeout, p.logger),
	}
	defer sub.ws.close(websocket.CloseNormalClosure, "")

	if err := p.join(sub); err != nil {
		p.logger.ComponentWarn(logging.ComponentGateway, "pubsub ws: subscribe failed",
			zap.String("key", key),
			zap.Error(err))
		sub.ws.close(websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer p.leave(sub)

	p.logger.ComponentInfo(logging.ComponentGateway, "pubsub ws: client attached",
		zap.String("key", key),
		zap.String("conn_id", sub.id))

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		p.writerLoop(sub, done)
	}()

	p.readerLoop(r.Context(), sub)
	close(done)
	<-writerDone

	p.logger.ComponentInfo(logging.ComponentGateway, "pubsub ws: client detached",
		zap.String("key", key),
		zap.String("conn_id", sub.id))
}

// writerLoop drains the subscriber's buffer into the socket until done is
// closed or a write fails.
func (p *PubSubHandlers) writerLoop(sub *localSubscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-sub.msgChan:
			if err := sub.ws.writeEnvelope(env); err != nil {
				// Unblocks the reader loop.
				sub.ws.close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			_ = sub.ws.writeControl(websocket.PingMessage, nil)
		case <-done:
			return
		}
	}
}

// readerLoop publishes client frames on channel connections and returns
// when the socket is closed.
func (p *PubSubHandlers) readerLoop(ctx context.Context, sub *localSubscriber) {
	for {
		mt, data, err := sub.ws.readMessage()
		if err != nil {
			return
		}
		if sub.pattern || (mt != websocket.TextMessage && mt != websocket.BinaryMessage) {
			continue
		}
		if _, err := p.client.Publish(ctx, sub.key, data); err != nil {
			p.logger.ComponentWarn(logging.ComponentGateway, "pubsub ws: publish from client failed",
				zap.String("key", sub.key),
				zap.Error(err))
		}
	}
}
