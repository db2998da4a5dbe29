package pubsub

import "github.com/DeBrosOfficial/kvpubsub/pkg/resp"

// MessageHandler represents a message handler function signature.
// key is the concrete channel the message was published on, also for
// pattern subscriptions. Multiple handlers can be registered for the same
// key and run in registration order. A returned error or a panic is
// reported as a non-fatal handler failure and does not stop other handlers.
type MessageHandler func(key string, payload []byte) error

// ListenerID identifies a global listener registration.
type ListenerID string

// Transport is the outbound half of the connection the subscriber runs on.
// Enqueue blocks while the outbound queue is full.
type Transport interface {
	Enqueue(cmd resp.Command, highPriority bool) error
}

// ErrorReporter receives failures that have no caller to return to.
type ErrorReporter interface {
	ReportError(context string, err error, fatal bool)
}
