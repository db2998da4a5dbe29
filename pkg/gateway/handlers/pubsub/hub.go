package pubsub

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/httputil"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
)

// join attaches sub to its key. The first subscriber of a key opens the
// server subscription.
func (p *PubSubHandlers) join(sub *localSubscriber) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	set, ok := p.localSubscribers[sub.key]
	if !ok {
		set = make(map[*localSubscriber]struct{})
		p.localSubscribers[sub.key] = set
	}
	set[sub] = struct{}{}
	p.mu.Unlock()

	if ok {
		return nil
	}

	h := p.deliverer(sub.key, sub.pattern)
	var err error
	if sub.pattern {
		err = p.client.PSubscribe(sub.key, h)
	} else {
		err = p.client.Subscribe(sub.key, h)
	}
	if err != nil {
		p.mu.Lock()
		delete(p.localSubscribers, sub.key)
		p.mu.Unlock()
		return err
	}

	p.logger.ComponentInfo(logging.ComponentGateway, "pubsub ws: opened server subscription",
		zap.String("key", sub.key),
		zap.Bool("pattern", sub.pattern))
	return nil
}

// leave detaches sub. The last subscriber of a key closes the server
// subscription.
func (p *PubSubHandlers) leave(sub *localSubscriber) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	set := p.localSubscribers[sub.key]
	delete(set, sub)
	remaining := len(set)
	if remaining == 0 {
		delete(p.localSubscribers, sub.key)
	}
	p.mu.Unlock()

	if remaining > 0 {
		return
	}

	var err error
	if sub.pattern {
		err = p.client.PUnsubscribe(sub.key)
	} else {
		err = p.client.Unsubscribe(sub.key)
	}
	if err != nil {
		p.logger.ComponentWarn(logging.ComponentGateway, "pubsub ws: failed to close server subscription",
			zap.String("key", sub.key),
			zap.Error(err))
		return
	}
	p.logger.ComponentInfo(logging.ComponentGateway, "pubsub ws: closed server subscription",
		zap.String("key", sub.key))
}

// deliverer returns the handler registered with the subscriber for key. It
// runs on the routing goroutine, so it never blocks: a client whose buffer
// is full loses the message.
func (p *PubSubHandlers) deliverer(key string, pattern bool) pubsub.MessageHandler {
	return func(channel string, payload []byte) error {
		env := Envelope{
			Channel:   channel,
			Data:      httputil.EncodeBase64(payload),
			Timestamp: time.Now().UnixMilli(),
		}
		if pattern {
			env.Pattern = key
		}

		p.mu.RLock()
		defer p.mu.RUnlock()
		for sub := range p.localSubscribers[key] {
			select {
			case sub.msgChan <- env:
			default:
				p.logger.ComponentWarn(logging.ComponentGateway, "pubsub ws: client slow, dropping message",
					zap.String("key", key),
					zap.String("conn_id", sub.id))
			}
		}
		return nil
	}
}

// clientCounts returns the number of WebSocket clients per key.
func (p *PubSubHandlers) clientCounts() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	counts := make(map[string]int, len(p.localSubscribers))
	for key, set := range p.localSubscribers {
		counts[key] = len(set)
	}
	return counts
}

// Close disconnects every WebSocket client. Their handlers then release the
// server subscriptions.
func (p *PubSubHandlers) Close() {
	p.mu.RLock()
	var subs []*localSubscriber
	for _, set := range p.localSubscribers {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	p.mu.RUnlock()

	for _, sub := range subs {
		sub.ws.close(websocket.CloseGoingAway, "gateway shutting down")
	}
}
