package pubsub

import (
	"context"
	"sort"
	"sync"

	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
)

// fakeClient records calls and lets tests deliver messages to the handler
// registered for a key.
type fakeClient struct {
	mu         sync.Mutex
	handlers   map[string]pubsub.MessageHandler
	calls      []string
	published  []string
	receivers  int64
	publishErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]pubsub.MessageHandler)}
}

func (f *fakeClient) record(call, key string, h pubsub.MessageHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call+" "+key)
	if h != nil {
		f.handlers[key] = h
	} else {
		delete(f.handlers, key)
	}
}

func (f *fakeClient) Subscribe(channel string, h pubsub.MessageHandler) error {
	f.record("SUBSCRIBE", channel, h)
	return nil
}

func (f *fakeClient) PSubscribe(pattern string, h pubsub.MessageHandler) error {
	f.record("PSUBSCRIBE", pattern, h)
	return nil
}

func (f *fakeClient) Unsubscribe(channel string) error {
	f.record("UNSUBSCRIBE", channel, nil)
	return nil
}

func (f *fakeClient) PUnsubscribe(pattern string) error {
	f.record("PUNSUBSCRIBE", pattern, nil)
	return nil
}

func (f *fakeClient) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	f.published = append(f.published, channel+"="+string(payload))
	return f.receivers, nil
}

func (f *fakeClient) SubscriptionCount() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.handlers))
}

func (f *fakeClient) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.handlers))
	for k := range f.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeClient) fire(key, channel string, payload []byte) bool {
	f.mu.Lock()
	h := f.handlers[key]
	f.mu.Unlock()
	if h == nil {
		return false
	}
	_ = h(channel, payload)
	return true
}

func (f *fakeClient) hasHandler(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[key] != nil
}

func (f *fakeClient) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) publishLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}
