package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

type listener struct {
	id ListenerID
	h  MessageHandler
}

// listenerSet holds the global listeners notified for every routed message.
type listenerSet struct {
	mu        sync.Mutex
	listeners []listener
}

func (s *listenerSet) add(h MessageHandler) ListenerID {
	id := ListenerID(uuid.NewString())
	s.mu.Lock()
	s.listeners = append(s.listeners, listener{id: id, h: h})
	s.mu.Unlock()
	return id
}

func (s *listenerSet) remove(id ListenerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			// copy-on-write keeps earlier snapshots intact
			next := make([]listener, 0, len(s.listeners)-1)
			next = append(next, s.listeners[:i]...)
			s.listeners = append(next, s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (s *listenerSet) snapshot() []listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners[:len(s.listeners):len(s.listeners)]
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
