package pubsub

import (
	"fmt"
	"sync/atomic"

	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/resp"
	"go.uber.org/zap"
)

var (
	tokenMessage      = []byte("message")
	tokenPMessage     = []byte("pmessage")
	tokenSubscribe    = []byte("subscribe")
	tokenUnsubscribe  = []byte("unsubscribe")
	tokenPSubscribe   = []byte("psubscribe")
	tokenPUnsubscribe = []byte("punsubscribe")
)

// Router turns inbound pub/sub frames into handler calls. It must be driven
// by a single goroutine: each frame is fully dispatched before Route returns.
type Router struct {
	registry  *Registry
	listeners *listenerSet
	count     *atomic.Int64
	reporter  ErrorReporter
	logger    *logging.ColoredLogger
}

func newRouter(registry *Registry, listeners *listenerSet, count *atomic.Int64, reporter ErrorReporter, logger *logging.ColoredLogger) *Router {
	return &Router{
		registry:  registry,
		listeners: listeners,
		count:     count,
		reporter:  reporter,
		logger:    logger,
	}
}

// Route handles one decoded frame. Frames of unknown shape and error
// replies are dropped.
func (r *Router) Route(frame resp.Frame) {
	if frame.IsError() {
		r.logger.ComponentDebug(logging.ComponentRouter, "Ignoring error reply",
			zap.String("reply", frame.String()))
		return
	}

	kind := frame.Elem(0)
	switch frame.Len() {
	case 3:
		switch {
		case kind.Equal(tokenMessage):
			channel := frame.Elem(1).String()
			r.dispatch(channel, channel, frame.Elem(2).Bytes())
			return
		case kind.Equal(tokenSubscribe), kind.Equal(tokenUnsubscribe),
			kind.Equal(tokenPSubscribe), kind.Equal(tokenPUnsubscribe):
			n, err := frame.Elem(2).Int()
			if err != nil {
				r.logger.ComponentDebug(logging.ComponentRouter, "Ignoring ack with non-integer count",
					zap.String("kind", kind.String()), zap.Error(err))
				return
			}
			r.count.Store(n)
			return
		}
	case 4:
		if kind.Equal(tokenPMessage) {
			r.dispatch(frame.Elem(1).String(), frame.Elem(2).String(), frame.Elem(3).Bytes())
			return
		}
	}

	r.logger.ComponentDebug(logging.ComponentRouter, "Ignoring unrecognized frame",
		zap.Int("elements", frame.Len()), zap.Stringer("kind", frame.Kind))
}

// dispatch calls the handlers registered under lookupKey, then every global
// listener, passing messageKey as the key argument.
func (r *Router) dispatch(lookupKey, messageKey string, payload []byte) {
	for _, h := range r.registry.Lookup(lookupKey) {
		r.invoke(lookupKey, messageKey, payload, h)
	}
	for _, l := range r.listeners.snapshot() {
		r.invoke(lookupKey, messageKey, payload, l.h)
	}
}

func (r *Router) invoke(lookupKey, messageKey string, payload []byte, h MessageHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			r.report(lookupKey, rec)
		}
	}()
	if err := h(messageKey, payload); err != nil {
		r.report(lookupKey, err)
	}
}

func (r *Router) report(lookupKey string, failure interface{}) {
	herr := errors.NewHandlerError(lookupKey, failure)
	if r.reporter == nil {
		r.logger.ComponentWarn(logging.ComponentRouter, "Message handler failed",
			zap.String("key", lookupKey), zap.Error(herr))
		return
	}
	r.reporter.ReportError(fmt.Sprintf("pubsub dispatch %q", lookupKey), herr, false)
}
