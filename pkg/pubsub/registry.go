package pubsub

import (
	"sort"
	"sync"
)

// Registry maps subscription keys to their ordered handler lists.
// All map access happens under one mutex; handlers are never called with
// the mutex held so they may subscribe or unsubscribe re-entrantly.
type Registry struct {
	mu       sync.Mutex
	handlers map[string][]MessageHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]MessageHandler)}
}

// Add appends h to the handlers of key. A nil handler creates no entry.
func (r *Registry) Add(key string, h MessageHandler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[key] = append(r.handlers[key], h)
	r.mu.Unlock()
}

// AddBatch appends h to every key in one critical section, so a lookup
// never sees half of a batch.
func (r *Registry) AddBatch(keys []string, h MessageHandler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	for _, k := range keys {
		r.handlers[k] = append(r.handlers[k], h)
	}
	r.mu.Unlock()
}

// Remove deletes key. Removing an absent key is a no-op.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.handlers, key)
	r.mu.Unlock()
}

// RemoveBatch deletes every key in one critical section.
func (r *Registry) RemoveBatch(keys []string) {
	r.mu.Lock()
	for _, k := range keys {
		delete(r.handlers, k)
	}
	r.mu.Unlock()
}

// Lookup returns the handlers registered for key at the time of the call.
// Elements are never rewritten in place, so the snapshot stays stable after
// the mutex is released.
func (r *Registry) Lookup(key string) []MessageHandler {
	r.mu.Lock()
	hs := r.handlers[key]
	r.mu.Unlock()
	// cap == len so appending to the snapshot cannot touch the shared array
	return hs[:len(hs):len(hs)]
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
