package pubsub

import (
	"sync/atomic"

	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/resp"
	"go.uber.org/zap"
)

// Subscriber is the pub/sub facade of one connection. Its methods are safe
// for concurrent use, including from inside message handlers. Route must be
// called from the connection's single reader goroutine.
type Subscriber struct {
	transport Transport
	registry  *Registry
	listeners *listenerSet
	router    *Router
	count     atomic.Int64
	logger    *logging.ColoredLogger
}

// NewSubscriber creates a subscriber that sends commands through transport
// and reports handler failures to reporter. logger may be nil.
func NewSubscriber(transport Transport, reporter ErrorReporter, logger *zap.Logger) *Subscriber {
	s := &Subscriber{
		transport: transport,
		registry:  NewRegistry(),
		listeners: &listenerSet{},
		logger:    newPubSubLogger(logger),
	}
	s.router = newRouter(s.registry, s.listeners, &s.count, reporter, s.logger)
	return s
}

// Subscribe registers h for channel and sends SUBSCRIBE. h may be nil, in
// which case only global listeners see the messages.
func (s *Subscriber) Subscribe(channel string, h MessageHandler) error {
	if err := ValidateKey(channel, false); err != nil {
		return err
	}
	s.registry.Add(channel, h)
	return s.send(resp.CmdSubscribe, channel)
}

// SubscribeMany registers h for every channel and sends one SUBSCRIBE.
func (s *Subscriber) SubscribeMany(channels []string, h MessageHandler) error {
	if err := ValidateKeys(channels, false); err != nil {
		return err
	}
	s.registry.AddBatch(channels, h)
	return s.send(resp.CmdSubscribe, channels...)
}

// PSubscribe registers h for pattern and sends PSUBSCRIBE.
func (s *Subscriber) PSubscribe(pattern string, h MessageHandler) error {
	if err := ValidateKey(pattern, true); err != nil {
		return err
	}
	s.registry.Add(pattern, h)
	return s.send(resp.CmdPSubscribe, pattern)
}

// PSubscribeMany registers h for every pattern and sends one PSUBSCRIBE.
func (s *Subscriber) PSubscribeMany(patterns []string, h MessageHandler) error {
	if err := ValidateKeys(patterns, true); err != nil {
		return err
	}
	s.registry.AddBatch(patterns, h)
	return s.send(resp.CmdPSubscribe, patterns...)
}

// Unsubscribe drops all handlers of channel and sends UNSUBSCRIBE, even
// when nothing was registered locally.
func (s *Subscriber) Unsubscribe(channel string) error {
	if err := ValidateKey(channel, false); err != nil {
		return err
	}
	s.registry.Remove(channel)
	return s.send(resp.CmdUnsubscribe, channel)
}

// UnsubscribeMany drops every channel and sends one UNSUBSCRIBE.
func (s *Subscriber) UnsubscribeMany(channels []string) error {
	if err := ValidateKeys(channels, false); err != nil {
		return err
	}
	s.registry.RemoveBatch(channels)
	return s.send(resp.CmdUnsubscribe, channels...)
}

// PUnsubscribe drops all handlers of pattern and sends PUNSUBSCRIBE.
func (s *Subscriber) PUnsubscribe(pattern string) error {
	if err := ValidateKey(pattern, true); err != nil {
		return err
	}
	s.registry.Remove(pattern)
	return s.send(resp.CmdPUnsubscribe, pattern)
}

// PUnsubscribeMany drops every pattern and sends one PUNSUBSCRIBE.
func (s *Subscriber) PUnsubscribeMany(patterns []string) error {
	if err := ValidateKeys(patterns, true); err != nil {
		return err
	}
	s.registry.RemoveBatch(patterns)
	return s.send(resp.CmdPUnsubscribe, patterns...)
}

// SubscriptionCount returns the count reported by the most recent
// subscribe or unsubscribe acknowledgement.
func (s *Subscriber) SubscriptionCount() int64 {
	return s.count.Load()
}

// OnMessage registers a listener called for every routed message after the
// per-key handlers. A nil h is ignored and yields an empty ID.
func (s *Subscriber) OnMessage(h MessageHandler) ListenerID {
	if h == nil {
		return ""
	}
	return s.listeners.add(h)
}

// RemoveListener unregisters a listener added with OnMessage.
func (s *Subscriber) RemoveListener(id ListenerID) bool {
	return s.listeners.remove(id)
}

// Route dispatches one inbound frame. It is the handler passed to the
// transport reader.
func (s *Subscriber) Route(frame resp.Frame) {
	s.router.Route(frame)
}

// Keys returns the channels and patterns that currently have handlers.
func (s *Subscriber) Keys() []string {
	return s.registry.Keys()
}

// Resubscribe sends SUBSCRIBE and PSUBSCRIBE for every registered key. It
// is meant for callers that re-establish the connection themselves.
func (s *Subscriber) Resubscribe() error {
	var channels, patterns []string
	for _, k := range s.registry.Keys() {
		if IsPattern(k) {
			patterns = append(patterns, k)
		} else {
			channels = append(channels, k)
		}
	}
	if len(channels) > 0 {
		if err := s.send(resp.CmdSubscribe, channels...); err != nil {
			return err
		}
	}
	if len(patterns) > 0 {
		if err := s.send(resp.CmdPSubscribe, patterns...); err != nil {
			return err
		}
	}
	s.logger.ComponentInfo(logging.ComponentSubscriber, "Resubscribed",
		zap.Int("channels", len(channels)), zap.Int("patterns", len(patterns)))
	return nil
}

func (s *Subscriber) send(name string, keys ...string) error {
	cmd := resp.NewCommand(name, keys...)
	if err := s.transport.Enqueue(cmd, false); err != nil {
		return errors.Wrapf(err, "failed to enqueue %s", name)
	}
	s.logger.ComponentDebug(logging.ComponentSubscriber, "Enqueued command",
		zap.String("command", name), zap.Strings("keys", keys))
	return nil
}
